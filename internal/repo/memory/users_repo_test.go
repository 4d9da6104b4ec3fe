package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/cinereview/internal/domain/user"
)

func mustUser(t *testing.T, r *UsersRepo, name, email string) user.User {
	t.Helper()
	u, err := user.New(name, email, "hash", user.RoleUser)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	u, err = r.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUsersRepo_EmailUniqueCaseInsensitive(t *testing.T) {
	r := NewUsersRepo()
	mustUser(t, r, "Sam", "sam@example.com")

	dup, _ := user.New("Other", "SAM@Example.com", "hash", user.RoleUser)
	if _, err := r.Create(context.Background(), dup); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := r.GetByEmail(context.Background(), " Sam@EXAMPLE.com ")
	if err != nil || got.Name != "Sam" {
		t.Fatalf("lookup by email failed: %v %+v", err, got)
	}
}

func TestUsersRepo_UpdateEmail(t *testing.T) {
	r := NewUsersRepo()
	sam := mustUser(t, r, "Sam", "sam@example.com")
	mustUser(t, r, "Ana", "ana@example.com")

	taken := "ana@example.com"
	if _, err := r.Update(context.Background(), sam.ID, user.ProfileUpdate{Email: &taken}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	fresh := "samuel@example.com"
	u, err := r.Update(context.Background(), sam.ID, user.ProfileUpdate{Email: &fresh})
	if err != nil || u.Email != fresh {
		t.Fatalf("update failed: %v %+v", err, u)
	}

	if _, err := r.GetByEmail(context.Background(), "sam@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("old email should be released, got %v", err)
	}

	// the old address is free again
	mustUser(t, r, "New Sam", "sam@example.com")
}

func TestUsersRepo_DeleteAndNames(t *testing.T) {
	r := NewUsersRepo()
	sam := mustUser(t, r, "Sam", "sam@example.com")
	ana := mustUser(t, r, "Ana", "ana@example.com")

	if err := r.Delete(context.Background(), sam.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(context.Background(), sam.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	names, err := r.NamesByIDs(context.Background(), []string{sam.ID, ana.ID})
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 1 || names[ana.ID] != "Ana" {
		t.Fatalf("unexpected names: %v", names)
	}

	all, _ := r.List(context.Background())
	if len(all) != 1 {
		t.Fatalf("got %d users, want 1", len(all))
	}
}
