// Package policy decides whether an identity may perform a request.
package policy

import (
	"fmt"

	"github.com/geocoder89/cinereview/internal/apperr"
)

var (
	ErrUnauthorized = fmt.Errorf("authentication required: %w", apperr.ErrUnauthorized)
	ErrForbidden    = fmt.Errorf("insufficient role: %w", apperr.ErrForbidden)
)

// Identity is the authenticated caller as resolved from the identity store.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

type level int

const (
	levelPublic level = iota
	levelAuthenticated
	levelRole
)

type Requirement struct {
	level level
	role  string
}

var (
	Public        = Requirement{level: levelPublic}
	Authenticated = Requirement{level: levelAuthenticated}
)

// Role requires an exact role match. There is no hierarchy: an admin does
// not satisfy Role("user").
func Role(r string) Requirement {
	return Requirement{level: levelRole, role: r}
}

func (r Requirement) String() string {
	switch r.level {
	case levelPublic:
		return "public"
	case levelAuthenticated:
		return "authenticated"
	default:
		return "role:" + r.role
	}
}

// Authorize returns nil to allow, ErrUnauthorized or ErrForbidden to deny.
func Authorize(identity *Identity, required Requirement) error {
	switch required.level {
	case levelPublic:
		return nil
	case levelAuthenticated:
		if identity == nil {
			return ErrUnauthorized
		}
		return nil
	default:
		if identity == nil {
			return ErrUnauthorized
		}
		if identity.Role != required.role {
			return ErrForbidden
		}
		return nil
	}
}
