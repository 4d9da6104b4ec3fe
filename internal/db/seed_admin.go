package db

import (
	"context"
	"errors"

	"github.com/geocoder89/cinereview/internal/config"
	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. An existing
// account with that email is left untouched.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	u, err := user.New(cfg.AdminName, cfg.AdminEmail, hash, user.RoleAdmin)
	if err != nil {
		return false, err
	}

	_, err = store.Create(ctx, u)

	// another instance won the race
	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}

	return err == nil, err
}
