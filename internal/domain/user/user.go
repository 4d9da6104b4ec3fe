package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound   = fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	ErrEmailTaken = fmt.Errorf("email is already in use: %w", apperr.ErrConflict)
)

// ErrInvalidRole is returned for roles outside RoleUser and RoleAdmin.
var ErrInvalidRole = errors.New("invalid role")

// NormalizeEmail is the canonical form used for uniqueness checks and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

func New(name, email, passwordHash, role string) (User, error) {
	if !ValidRole(role) {
		return User{}, ErrInvalidRole
	}

	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ProfileUpdate carries the mutable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

func (u *User) Apply(p ProfileUpdate) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	u.UpdatedAt = time.Now().UTC()
}
