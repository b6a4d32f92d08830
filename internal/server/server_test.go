package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"
	"warbler/internal/service"
	"warbler/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "HASHED_PASSWORD"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret-key-that-is-long-enough-123",
		JWTTTLHours:    1,
		Port:           "0",
		Env:            "test",
		AllowedOrigins: "http://localhost:5000",
		BcryptCost:     bcrypt.MinCost,
	}
}

// newTestServer builds a fully wired app on an in-memory sqlite database.
// withRedis adds a miniredis instance for token revocation.
func newTestServer(t *testing.T, withRedis bool) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	var rdb *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	s, err := NewServerWithDeps(testConfig(), testutil.NewSQLiteDB(t), rdb)
	require.NoError(t, err)
	return s, s.newApp()
}

func signup(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	user, err := s.userService.Signup(context.Background(), service.SignupInput{
		Username: username,
		Email:    username + "@test.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return user
}

func tokenFor(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, _, err := s.sessions.Issue(user.ID, user.Username)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, token string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

func idPath(prefix string, id uint, suffix string) string {
	return prefix + strconv.FormatUint(uint64(id), 10) + suffix
}

func TestNewServerWithDeps_RequiresDB(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestHealthChecks(t *testing.T) {
	_, app := newTestServer(t, false)

	resp := doRequest(t, app, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestHealthReady_RedisRequiredInProduction(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.config.Env = "production"
	app := s.newApp()

	resp := doRequest(t, app, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFollowersPageRequiresLogin(t *testing.T) {
	s, app := newTestServer(t, false)
	u1 := signup(t, s, "testuser1")
	u2 := signup(t, s, "testuser2")
	require.NoError(t, s.followService.Follow(context.Background(), u2.ID, u1.ID))

	t.Run("logged out redirects home with a flash", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, idPath("/users/", u1.ID, "/followers"), nil, "")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		flash := findCookie(resp, "flash")
		require.NotNil(t, flash)

		home := doRequest(t, app, http.MethodGet, "/", nil, "", flash)
		assert.Equal(t, http.StatusOK, home.StatusCode)
		assert.Contains(t, readBody(t, home), "Access unauthorized.")
	})

	t.Run("logged in lists the follower", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, idPath("/users/", u1.ID, "/followers"), nil, tokenFor(t, s, u1))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "testuser2")
	})

	t.Run("session cookie works like a bearer token", func(t *testing.T) {
		cookie := &http.Cookie{Name: "curr_user", Value: tokenFor(t, s, u2)}
		resp := doRequest(t, app, http.MethodGet, idPath("/users/", u2.ID, "/following"), nil, "", cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "testuser1")
	})
}

func TestHomepage(t *testing.T) {
	s, app := newTestServer(t, false)
	ctx := context.Background()
	me := signup(t, s, "reader")
	friend := signup(t, s, "friend")
	stranger := signup(t, s, "stranger")
	require.NoError(t, s.followService.Follow(ctx, me.ID, friend.ID))

	_, err := s.messageService.Create(ctx, me.ID, "my own warble")
	require.NoError(t, err)
	_, err = s.messageService.Create(ctx, friend.ID, "from a friend")
	require.NoError(t, err)
	_, err = s.messageService.Create(ctx, stranger.ID, "from a stranger")
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Flashes []map[string]string `json:"flashes"`
			Signup  string              `json:"signup"`
		}
		decodeJSON(t, resp, &body)
		assert.Empty(t, body.Flashes)
		assert.Equal(t, "/signup", body.Signup)
	})

	t.Run("timeline", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/", nil, tokenFor(t, s, me))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Messages []models.Message `json:"messages"`
		}
		decodeJSON(t, resp, &body)

		texts := make([]string, 0, len(body.Messages))
		for _, m := range body.Messages {
			texts = append(texts, m.Text)
		}
		assert.ElementsMatch(t, []string{"my own warble", "from a friend"}, texts)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{models.NewValidationError("bad"), fiber.StatusBadRequest},
		{models.NewNotFoundError("User", 1), fiber.StatusNotFound},
		{models.NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{models.NewConflictError("taken", nil), fiber.StatusConflict},
		{models.NewInternalError(assert.AnError), fiber.StatusInternalServerError},
		{assert.AnError, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusFor(tt.err), tt.err.Error())
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query          string
		expectedLimit  float64
		expectedOffset float64
	}{
		{"", 25, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=1000", maxPaginationLimit, 0},
		{"?limit=-5&offset=-1", 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedLimit, body["limit"])
			assert.Equal(t, tt.expectedOffset, body["offset"])
		})
	}
}
