package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	user := &Identity{UserID: "u1", Role: "user"}
	admin := &Identity{UserID: "a1", Role: "admin"}

	tests := []struct {
		name     string
		identity *Identity
		required Requirement
		want     error
	}{
		{"public_anonymous", nil, Public, nil},
		{"public_user", user, Public, nil},
		{"authenticated_anonymous", nil, Authenticated, ErrUnauthorized},
		{"authenticated_user", user, Authenticated, nil},
		{"admin_anonymous", nil, Role("admin"), ErrUnauthorized},
		{"admin_as_user", user, Role("admin"), ErrForbidden},
		{"admin_as_admin", admin, Role("admin"), nil},
		{"user_role_as_admin_is_not_hierarchical", admin, Role("user"), ErrForbidden},
		{"user_role_as_user", user, Role("user"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.identity, tt.required)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestRequirementString(t *testing.T) {
	assert.Equal(t, "role:admin", Role("admin").String())
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
