package utils

import "github.com/google/uuid"

// IsUUID reports whether s is a canonical UUID as produced by the stores.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
