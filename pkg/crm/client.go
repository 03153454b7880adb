// Package crm provides a client for the SimplyAPI CRM backend.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/config"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
)

// DefaultTimeout is the maximum time to wait for SimplyAPI responses.
const DefaultTimeout = 10 * time.Second

// AdminUser is the CRM user record returned on a successful login.
type AdminUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Client provides access to the SimplyAPI backend.
type Client struct {
	cfg        *config.CRMConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new SimplyAPI client.
func NewClient(cfg *config.CRMConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger.Named("crm"),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	OK    bool       `json:"ok"`
	User  *AdminUser `json:"user"`
	Error string     `json:"error"`
}

// ValidateCredentials checks an admin email/password pair against the
// SimplyAPI login endpoint. Returns apperrors.ErrInvalidCredentials when
// SimplyAPI rejects the pair and apperrors.ErrUpstreamUnavailable when it
// cannot be reached.
func (c *Client) ValidateCredentials(ctx context.Context, email, password string) (*AdminUser, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	endpoint := c.cfg.CRMEndpoint("api", "auth", "login")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("SimplyAPI unreachable",
			zap.String("email", logging.MaskEmail(email)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.ErrUpstreamUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}

	var loginResp loginResponse
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		c.logger.Warn("SimplyAPI returned non-JSON login response",
			zap.Int("status", resp.StatusCode))
		return nil, apperrors.ErrUpstreamUnavailable
	}

	if resp.StatusCode != http.StatusOK || !loginResp.OK || loginResp.User == nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return loginResp.User, nil
}
