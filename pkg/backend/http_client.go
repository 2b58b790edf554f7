package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/session"
)

// DefaultBaseURL is the local development backend.
const DefaultBaseURL = "http://localhost:8000/api"

const defaultTimeout = 12 * time.Second

// HTTPConfig configures the HTTP backend client.
type HTTPConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Timeout    time.Duration
	// Telemetry receives "backend.session.invalidate_error" when a rejected
	// token pair could not be cleared.
	Telemetry dashboard.Telemetry
}

// HTTPClient talks to the seller analytics REST API.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	telemetry dashboard.Telemetry
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the analytics backend at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{baseURL: base, client: httpClient, tokens: cfg.Tokens, telemetry: cfg.Telemetry}, nil
}

// Login exchanges a seller token for a JWT pair. Nothing is stored here.
func (c *HTTPClient) Login(ctx context.Context, sellerToken string) (LoginResult, error) {
	sellerToken = strings.TrimSpace(sellerToken)
	if sellerToken == "" {
		return LoginResult{}, ErrBlankSellerToken
	}
	var resp LoginResult
	body := map[string]string{"seller_token": sellerToken}
	if err := c.send(ctx, http.MethodPost, "/auth/seller/login/", body, &resp, false); err != nil {
		return LoginResult{}, RejectLogin(err)
	}
	if strings.TrimSpace(resp.Access) == "" {
		return LoginResult{}, ErrMissingAccess
	}
	return resp, nil
}

// Profile loads the seller's shop profile.
func (c *HTTPClient) Profile(ctx context.Context) (dashboard.SellerProfile, error) {
	var out dashboard.SellerProfile
	err := c.get(ctx, "/dk/profile/", &out)
	return out, err
}

// Products lists the seller's products for the selector.
func (c *HTTPClient) Products(ctx context.Context) ([]dashboard.ProductSummary, error) {
	var out []dashboard.ProductSummary
	if err := c.get(ctx, "/insights/products/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Settings loads the seller's analysis thresholds.
func (c *HTTPClient) Settings(ctx context.Context) (dashboard.SellerSettings, error) {
	var out dashboard.SellerSettings
	err := c.get(ctx, "/settings/", &out)
	return out, err
}

// UpdateSettings posts a partial settings update. An empty response body
// leaves the returned settings zeroed.
func (c *HTTPClient) UpdateSettings(ctx context.Context, patch dashboard.SettingsPatch) (dashboard.SellerSettings, error) {
	var out dashboard.SellerSettings
	err := c.send(ctx, http.MethodPost, "/settings/", patch, &out, true)
	return out, err
}

// CardAnalysis requests the short brief for one card.
func (c *HTTPClient) CardAnalysis(ctx context.Context, req dashboard.CardAnalysisRequest) (dashboard.CardAnalysis, error) {
	var out dashboard.CardAnalysis
	err := c.send(ctx, http.MethodPost, "/insights/card-analysis/", req, &out, true)
	return out, err
}

func insightPath(kind dashboard.InsightKind, sku string) string {
	return "/insights/" + kind.Slug() + "/?sku=" + url.QueryEscape(sku)
}

func (c *HTTPClient) get(ctx context.Context, path string, target any) error {
	return c.send(ctx, http.MethodGet, path, nil, target, true)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, payload, target any, auth bool) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &RemoteError{Status: resp.StatusCode, Body: string(raw)}
		if auth && resp.StatusCode == http.StatusUnauthorized && strings.Contains(remote.Body, tokenNotValidCode) {
			c.invalidate(ctx, path)
			return &sessionExpiredError{remote: remote}
		}
		return remote
	}
	if target == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

// invalidate drops the rejected token pair. The session manager clears a
// request's session once, however many of its calls were rejected.
func (c *HTTPClient) invalidate(ctx context.Context, path string) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Invalidate(ctx); err != nil && c.telemetry != nil {
		c.telemetry.Record(ctx, "backend.session.invalidate_error", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		if session.IsNoSession(err) {
			if session.Invalidated(ctx) {
				return "", ErrSessionExpired
			}
			return "", nil
		}
		return "", fmt.Errorf("backend: access token: %w", err)
	}
	return token, nil
}

func decodeLenient(body string, target any) bool {
	body = strings.TrimSpace(body)
	if body == "" || !strings.HasPrefix(body, "{") {
		return false
	}
	return json.Unmarshal([]byte(body), target) == nil
}

// ErrorMessage is what a seller sees for err: the backend detail when the
// backend sent one, otherwise the error text.
func ErrorMessage(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Detail()
	}
	return err.Error()
}
