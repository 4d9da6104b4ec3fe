package utils

import (
	"strconv"
	"strings"
)

// MoviesListCachePrefix is shared by every cached movie list page so a
// single prefix delete drops them all.
const MoviesListCachePrefix = "movies:list:"

func BuildMoviesListCacheKey(keyword string, page int) string {
	k := strings.ToLower(strings.TrimSpace(keyword))

	return MoviesListCachePrefix + "v1:page=" + strconv.Itoa(page) +
		":keyword=" + k
}
