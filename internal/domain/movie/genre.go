package movie

type Genre string

const (
	Action      Genre = "Action"
	Adventure   Genre = "Adventure"
	Animation   Genre = "Animation"
	Comedy      Genre = "Comedy"
	Crime       Genre = "Crime"
	Documentary Genre = "Documentary"
	Drama       Genre = "Drama"
	Family      Genre = "Family"
	Fantasy     Genre = "Fantasy"
	Horror      Genre = "Horror"
	Mystery     Genre = "Mystery"
	Romance     Genre = "Romance"
	SciFi       Genre = "Sci-Fi"
	Thriller    Genre = "Thriller"
	Western     Genre = "Western"
)

var genres = map[Genre]struct{}{
	Action: {}, Adventure: {}, Animation: {}, Comedy: {}, Crime: {},
	Documentary: {}, Drama: {}, Family: {}, Fantasy: {}, Horror: {},
	Mystery: {}, Romance: {}, SciFi: {}, Thriller: {}, Western: {},
}

// AllGenres lists the vocabulary in display order.
func AllGenres() []Genre {
	return []Genre{
		Action, Adventure, Animation, Comedy, Crime, Documentary, Drama, Family,
		Fantasy, Horror, Mystery, Romance, SciFi, Thriller, Western,
	}
}

func (g Genre) IsValid() bool {
	_, ok := genres[g]
	return ok
}

func GenresToStrings(gs []Genre) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = string(g)
	}
	return out
}

func GenresFromStrings(ss []string) []Genre {
	out := make([]Genre, len(ss))
	for i, s := range ss {
		out[i] = Genre(s)
	}
	return out
}
