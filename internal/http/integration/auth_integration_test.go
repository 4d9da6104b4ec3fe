package integration_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
)

func TestAuthIntegration_Register_Login_Profile(t *testing.T) {
	app := setupTestApp(t)

	// a role in the payload never escalates
	w, resp := doRequest(app.router, http.MethodPost, "/api/users",
		`{"name":"Sam Doe","email":"sam@example.com","password":"password123","role":"admin"}`)
	expectStatus(t, w, http.StatusCreated, "register")

	var signup sessionResponse
	mustReadJSON(t, w, &signup)
	if signup.Role != user.RoleUser || strings.TrimSpace(signup.Token) == "" {
		t.Fatalf("unexpected register body: %s", w.Body.String())
	}

	cookie := sessionCookie(t, resp)
	if !cookie.HttpOnly || cookie.Value != signup.Token {
		t.Fatalf("unexpected session cookie: %+v", cookie)
	}

	// the cookie alone authenticates
	w, _ = doRequest(app.router, http.MethodGet, "/api/users/profile", "", withCookie(cookie))
	expectStatus(t, w, http.StatusOK, "profile(cookie)")

	// so does the bearer header from login
	s := login(t, app.router, "SAM@example.com", "password123")
	w, _ = doRequest(app.router, http.MethodGet, "/api/users/profile", "", bearer(s.Token))
	expectStatus(t, w, http.StatusOK, "profile(bearer)")

	var profile sessionResponse
	mustReadJSON(t, w, &profile)
	if profile.ID != signup.ID || profile.Name != "Sam Doe" {
		t.Fatalf("unexpected profile: %s", w.Body.String())
	}

	// the header wins over a stale cookie
	stale := &http.Cookie{Name: middlewares.CookieName, Value: "garbage"}
	w, _ = doRequest(app.router, http.MethodGet, "/api/users/profile", "", bearer(s.Token), withCookie(stale))
	expectStatus(t, w, http.StatusOK, "profile(bearer over cookie)")

	w, _ = doRequest(app.router, http.MethodGet, "/api/users/check-role", "", bearer(s.Token))
	expectStatus(t, w, http.StatusOK, "check-role")
}

func TestAuthIntegration_Login_InvalidCredentials(t *testing.T) {
	app := setupTestApp(t)

	w, _ := doRequest(app.router, http.MethodPost, "/api/users/auth", `{"email":"nope@example.com","password":"wrong-password"}`)
	expectStatus(t, w, http.StatusUnauthorized, "login(unknown)")
	expectCode(t, w, "invalid_credentials")

	w, _ = doRequest(app.router, http.MethodPost, "/api/users/auth", `{"email":"`+adminEmail+`","password":"wrong-password"}`)
	expectStatus(t, w, http.StatusUnauthorized, "login(wrong password)")
	expectCode(t, w, "invalid_credentials")
}

func TestAuthIntegration_Register_DuplicateEmail(t *testing.T) {
	app := setupTestApp(t)

	register(t, app.router, "Sam", "sam@example.com", "password123")

	w, _ := doRequest(app.router, http.MethodPost, "/api/users", `{"name":"Other","email":"Sam@Example.com","password":"password123"}`)
	expectStatus(t, w, http.StatusBadRequest, "register(duplicate)")
	expectCode(t, w, "email_taken")
}

func TestAuthIntegration_Logout_ClearsCookie(t *testing.T) {
	app := setupTestApp(t)

	_, cookie := register(t, app.router, "Sam", "sam@example.com", "password123")

	w, resp := doRequest(app.router, http.MethodPost, "/api/users/logout", "", withCookie(cookie))
	expectStatus(t, w, http.StatusOK, "logout")

	cleared := sessionCookie(t, resp)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected logout to clear the %s cookie, got %+v", middlewares.CookieName, cleared)
	}

	// a browser now sends the emptied cookie, which is no credential at all
	w, _ = doRequest(app.router, http.MethodGet, "/api/users/profile", "", withCookie(&http.Cookie{Name: middlewares.CookieName, Value: ""}))
	expectStatus(t, w, http.StatusUnauthorized, "profile(after logout)")
}

func TestAuthIntegration_RejectsBadCredentials(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name     string
		opts     []requestOption
		wantCode string
	}{
		{"no_credential", nil, "unauthorized"},
		{"garbage_bearer", []requestOption{bearer("not-a-jwt")}, "invalid_token"},
		{"garbage_cookie", []requestOption{withCookie(&http.Cookie{Name: middlewares.CookieName, Value: "abc.def.ghi"})}, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(app.router, http.MethodGet, "/api/users/profile", "", tt.opts...)
			expectStatus(t, w, http.StatusUnauthorized, "profile")
			expectCode(t, w, tt.wantCode)
		})
	}
}

func TestAdminIntegration_ManageUsers(t *testing.T) {
	app := setupTestApp(t)

	admin := login(t, app.router, adminEmail, adminPassword)
	sam, _ := register(t, app.router, "Sam", "sam@example.com", "password123")

	// plain users cannot list
	w, _ := doRequest(app.router, http.MethodGet, "/api/users/all", "", bearer(sam.Token))
	expectStatus(t, w, http.StatusForbidden, "list users(user)")
	expectCode(t, w, "forbidden")

	w, _ = doRequest(app.router, http.MethodGet, "/api/users/all", "", bearer(admin.Token))
	expectStatus(t, w, http.StatusOK, "list users(admin)")

	var list struct {
		Count int `json:"count"`
	}
	mustReadJSON(t, w, &list)
	if list.Count != 2 {
		t.Fatalf("got %d users, want 2", list.Count)
	}

	w, _ = doRequest(app.router, http.MethodDelete, "/api/users/"+admin.ID, "", bearer(admin.Token))
	expectStatus(t, w, http.StatusBadRequest, "delete admin")
	expectCode(t, w, "cannot_delete_admin")

	w, _ = doRequest(app.router, http.MethodDelete, "/api/users/"+sam.ID, "", bearer(admin.Token))
	expectStatus(t, w, http.StatusOK, "delete user")

	// the credential outlives the account but resolves to nobody
	w, _ = doRequest(app.router, http.MethodGet, "/api/users/profile", "", bearer(sam.Token))
	expectStatus(t, w, http.StatusUnauthorized, "profile(deleted user)")
}
