package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

func TestVerifyValidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "good-token", req.Token)

		json.NewEncoder(w).Encode(verifyResponse{
			Valid: true,
			User: &Identity{
				UserID: "42",
				Name:   "Dr. Farahani",
				Email:  "farahani@rierco.net",
				Avatar: "https://cdn.rierco.net/42.png",
				Role:   "technician",
			},
		})
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second, zap.NewNop())
	id, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "42", id.UserID)
	assert.Equal(t, "Dr. Farahani", id.Name)
}

func TestVerifyRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second, zap.NewNop())
	_, err := v.Verify(context.Background(), "expired")
	assert.ErrorIs(t, err, apperrors.ErrBadToken)
}

func TestVerifyInvalidFlagTreatedAsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(verifyResponse{Valid: false})
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second, zap.NewNop())
	_, err := v.Verify(context.Background(), "revoked")
	assert.ErrorIs(t, err, apperrors.ErrBadToken)
}

func TestVerifyServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, time.Second, zap.NewNop())
	_, err := v.Verify(context.Background(), "token")
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.CodeOf(err))
}

func TestVerifyUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	v := NewHTTPVerifier(srv.URL, time.Second, zap.NewNop())
	_, err := v.Verify(context.Background(), "token")
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.CodeOf(err))
}

func TestVerifyEmptyToken(t *testing.T) {
	v := NewHTTPVerifier("http://identity.invalid", time.Second, zap.NewNop())
	_, err := v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrBadToken)
}
