package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/exthub-go/auth"
	"github.com/user/exthub-go/config"
	"github.com/user/exthub-go/response"
)

// testServer wires the full user route tree over the in-memory repository,
// exactly as main does it, so the tests cover routing, middleware order and
// the envelope shape together.
type testServer struct {
	router  chi.Router
	service *Service
	repo    *memoryRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	issuer, err := auth.NewTokenIssuer(&config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
	})
	require.NoError(t, err)

	repo := newMemoryRepository()
	service := NewService(repo, issuer)
	ew := response.NewErrorWriter(false)
	handlers := NewHandlers(service, ew)

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		handlers.RegisterRoutes(r, auth.Authenticate(issuer, ew), auth.RequireAdmin(service, ew))
	})

	return &testServer{router: r, service: service, repo: repo}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token and id.
func (s *testServer) register(t *testing.T, email, username string) (token, id string) {
	t.Helper()
	rec := s.do(http.MethodPost, "/users/register", "",
		`{"email":"`+email+`","username":"`+username+`","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data.Token, env.Data.User.ID
}

// promote flips the stored role to admin, bypassing the API.
func (s *testServer) promote(t *testing.T, id string) {
	t.Helper()
	_, err := s.service.AssignRole(context.Background(), id, RoleAdmin)
	require.NoError(t, err)
}

func TestHandleRegister(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := srv.do(http.MethodPost, "/users/register", "",
		`{"email":"a@x.com","username":"alice","password":"password123"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)

	// The password hash never appears in the response body.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHandleRegister_ValidationFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := srv.do(http.MethodPost, "/users/register", "",
		`{"email":"bad","username":"ab","password":"123"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Contains(t, env.Error, "email")
}

func TestHandleRegister_Conflict(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.register(t, "a@x.com", "alice")

	rec := srv.do(http.MethodPost, "/users/register", "",
		`{"email":"a@x.com","username":"bob","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleLogin(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.register(t, "a@x.com", "alice")

	rec := srv.do(http.MethodPost, "/users/login", "",
		`{"email":"a@x.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodPost, "/users/login", "",
		`{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileRoutes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	token, _ := srv.register(t, "a@x.com", "alice")

	// Unauthenticated access is rejected before the handler runs.
	rec := srv.do(http.MethodGet, "/users/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/users/profile", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "alice", env.Data.Username)

	rec = srv.do(http.MethodPut, "/users/profile", token, `{"firstName":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodPut, "/users/change-password", token,
		`{"currentPassword":"password123","newPassword":"newpassword"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodDelete, "/users/profile", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// The token still verifies, but the account behind it is gone.
	rec = srv.do(http.MethodGet, "/users/profile", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	userToken, _ := srv.register(t, "a@x.com", "alice")
	adminToken, adminID := srv.register(t, "b@x.com", "boss")
	srv.promote(t, adminID)

	rec := srv.do(http.MethodGet, "/users/some-id", userToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodGet, "/users/some-id", adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "admin passes the gate, then the lookup 404s")
}

// The admin gate consults the stored role, so a demotion takes effect on the
// next request even though the old token still carries the ADMIN claim.
func TestAdminRoutes_DemotionTakesEffectImmediately(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminToken, adminID := srv.register(t, "b@x.com", "boss")
	srv.promote(t, adminID)
	_, targetID := srv.register(t, "a@x.com", "alice")

	rec := srv.do(http.MethodGet, "/users/"+targetID, adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := srv.service.AssignRole(context.Background(), adminID, RoleUser)
	require.NoError(t, err)

	rec = srv.do(http.MethodGet, "/users/"+targetID, adminToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleAssignRole(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminToken, adminID := srv.register(t, "b@x.com", "boss")
	srv.promote(t, adminID)
	_, targetID := srv.register(t, "a@x.com", "alice")

	rec := srv.do(http.MethodPost, "/users/assign-role", adminToken,
		`{"userId":"`+targetID+`","role":"ADMIN"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	role, err := srv.service.RoleByID(context.Background(), targetID)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", role)

	// Values outside the enum are rejected by the schema.
	rec = srv.do(http.MethodPost, "/users/assign-role", adminToken,
		`{"userId":"`+targetID+`","role":"SUPERUSER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListUsers(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	token, _ := srv.register(t, "a@x.com", "alice")
	srv.register(t, "b@x.com", "bob")
	srv.register(t, "c@x.com", "carol")

	rec := srv.do(http.MethodGet, "/users/?page=1&limit=2", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env response.PaginatedEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 3, env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.Pages)

	rec = srv.do(http.MethodGet, "/users/?page=0", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDeleteAndUpdateByID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminToken, adminID := srv.register(t, "b@x.com", "boss")
	srv.promote(t, adminID)
	_, targetID := srv.register(t, "a@x.com", "alice")

	rec := srv.do(http.MethodPut, "/users/"+targetID, adminToken, `{"username":"alice2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodDelete, "/users/"+targetID, adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodDelete, "/users/"+targetID, adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
