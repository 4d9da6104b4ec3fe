package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/cinereview/internal/auth"
	"github.com/geocoder89/cinereview/internal/cache"
	"github.com/geocoder89/cinereview/internal/catalog"
	"github.com/geocoder89/cinereview/internal/config"
	"github.com/geocoder89/cinereview/internal/db"
	apphttp "github.com/geocoder89/cinereview/internal/http"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
	"github.com/geocoder89/cinereview/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

func testConfig() config.Config {
	return config.Config{
		Env:           "test",
		JWTSecret:     "test-secret-key",
		JWTTTLHours:   1,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		AdminName:     "Test Admin",
		CORSOrigins:   []string{"http://localhost:3000"},
		StoreTimeout:  2 * time.Second,
	}
}

type testApp struct {
	router *gin.Engine
	users  *memory.UsersRepo
	movies *memory.MoviesRepo
}

// setupTestApp wires the real router over the in-memory stores, with the
// admin account seeded the way the API binary does it.
func setupTestApp(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := testConfig()

	users := memory.NewUsersRepo()
	movies := memory.NewMoviesRepo()

	if _, err := db.EnsureAdminUser(context.Background(), users, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	svc := catalog.NewService(movies, users,
		catalog.WithCache(cache.New(time.Minute)),
		catalog.WithLogger(logger),
		catalog.WithStoreTimeout(cfg.StoreTimeout),
	)

	router := apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Users:    users,
		Catalog:  svc,
		Sessions: auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
	})

	return testApp{router: router, users: users, movies: movies}
}

// helpers

type apiErrorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

type sessionResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type requestOption func(*http.Request)

func bearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) {
		r.AddCookie(c)
	}
}

// doRequest runs a request and returns the recorder plus the parsed response for cookies
func doRequest(router http.Handler, method, path, body string, opts ...requestOption) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func sessionCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range response.Cookies() {
		if c.Name == middlewares.CookieName {
			return c
		}
	}

	t.Fatalf("%s cookie not found in response", middlewares.CookieName)

	return nil
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int, step string) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("%s got status %d, want %d, body=%s", step, w.Code, want, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	var e apiErrorResponse
	mustReadJSON(t, w, &e)
	if e.Error.Code != want {
		t.Fatalf("got error code %q, want %q, body=%s", e.Error.Code, want, w.Body.String())
	}
}

func login(t *testing.T, router http.Handler, email, password string) sessionResponse {
	t.Helper()

	w, _ := doRequest(router, http.MethodPost, "/api/users/auth", `{"email":"`+email+`","password":"`+password+`"}`)
	expectStatus(t, w, http.StatusOK, "login")

	var s sessionResponse
	mustReadJSON(t, w, &s)
	return s
}

func register(t *testing.T, router http.Handler, name, email, password string) (sessionResponse, *http.Cookie) {
	t.Helper()

	w, resp := doRequest(router, http.MethodPost, "/api/users", `{"name":"`+name+`","email":"`+email+`","password":"`+password+`"}`)
	expectStatus(t, w, http.StatusCreated, "register")

	var s sessionResponse
	mustReadJSON(t, w, &s)
	return s, sessionCookie(t, resp)
}

const movieBody = `{
	"title": "Heat",
	"description": "A group of professional bank robbers.",
	"poster": "https://example.com/heat.jpg",
	"genres": ["Crime", "Thriller"],
	"director": "Michael Mann",
	"year": 1995,
	"duration": 170
}`

func createMovie(t *testing.T, router http.Handler, adminToken string) string {
	t.Helper()

	w, _ := doRequest(router, http.MethodPost, "/api/movies", movieBody, bearer(adminToken))
	expectStatus(t, w, http.StatusCreated, "create movie")

	var m struct {
		ID string `json:"id"`
	}
	mustReadJSON(t, w, &m)
	return m.ID
}
