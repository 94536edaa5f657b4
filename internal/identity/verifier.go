package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

// Identity carries the verified principal returned by the identity
// service.
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"image"`
	Role   string `json:"role"`
}

// Verifier validates bearer tokens. The production implementation
// delegates to the identity service shared by the sibling applications;
// tests substitute a stub.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid bool      `json:"valid"`
	User  *Identity `json:"user"`
}

type httpVerifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPVerifier builds a Verifier that POSTs {token} to the identity
// service's verification endpoint.
func NewHTTPVerifier(url string, timeout time.Duration, logger *zap.Logger) Verifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpVerifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (v *httpVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, errors.ErrBadToken
	}

	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("identity verification call failed", zap.Error(err))
		return nil, errors.ErrIdentityUnreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.ErrBadToken
	}
	if resp.StatusCode != http.StatusOK {
		v.logger.Error("identity verification unexpected status",
			zap.Int("status", resp.StatusCode),
		)
		return nil, errors.ErrIdentityUnreachable(fmt.Errorf("status %d", resp.StatusCode))
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, errors.ErrIdentityUnreachable(err)
	}

	if !vr.Valid || vr.User == nil || vr.User.UserID == "" {
		return nil, errors.ErrBadToken
	}

	return vr.User, nil
}
