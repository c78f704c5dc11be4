package extensions

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/response"
)

// secretPayload is the part of the request body the gate inspects.
type secretPayload struct {
	Secret string `json:"secret"`
}

// NewSecretMiddleware returns middleware that authenticates the trusted
// build-publishing service by a shared secret carried in the JSON body. The
// body is re-buffered so the downstream handler can decode it again. A
// missing server-side secret is a configuration error and fails at startup.
//
// Outcomes: missing caller secret → 400, mismatch → 401.
func NewSecretMiddleware(secret string, ew *response.ErrorWriter) (func(next http.Handler) http.Handler, error) {
	if secret == "" {
		return nil, apperror.NewConfigError("extension secret is not configured", nil)
	}
	expected := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				ew.WriteError(w, r, apperror.NewBadRequestError("failed to read request body", err))
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			var payload secretPayload
			if err := json.Unmarshal(body, &payload); err != nil {
				ew.WriteError(w, r, apperror.NewBadRequestError("invalid request body", err))
				return
			}
			if payload.Secret == "" {
				ew.WriteError(w, r, apperror.NewBadRequestError("Secret is required", nil))
				return
			}
			if subtle.ConstantTimeCompare([]byte(payload.Secret), expected) != 1 {
				ew.WriteError(w, r, apperror.NewAuthError("Invalid secret", nil))
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
