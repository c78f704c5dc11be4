package extensions

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/exthub-go/response"
)

func newSecretHandler(t *testing.T, next http.Handler) http.Handler {
	t.Helper()
	mw, err := NewSecretMiddleware("publisher-secret", response.NewErrorWriter(false))
	require.NoError(t, err)
	return mw(next)
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/extensions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNewSecretMiddleware_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewSecretMiddleware("", response.NewErrorWriter(false))
	require.Error(t, err)
}

func TestSecretMiddleware_ValidSecret(t *testing.T) {
	t.Parallel()

	// The handler must see the full original body, secret included.
	var seenBody []byte
	handler := newSecretHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		seenBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"buildNumber":"1.0.100","secret":"publisher-secret"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON(body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, body, string(seenBody))
}

func TestSecretMiddleware_MissingSecret(t *testing.T) {
	t.Parallel()

	handler := newSecretHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON(`{"buildNumber":"1.0.100"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "Secret is required", env.Message)
}

func TestSecretMiddleware_WrongSecret(t *testing.T) {
	t.Parallel()

	handler := newSecretHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON(`{"buildNumber":"1.0.100","secret":"guess"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid secret", env.Message)
}

func TestSecretMiddleware_MalformedBody(t *testing.T) {
	t.Parallel()

	handler := newSecretHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON(`{"secret":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
