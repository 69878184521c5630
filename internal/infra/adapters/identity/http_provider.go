package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/ports/adapter"
)

var _ adapter.IdentityProvider = (*HTTPProvider)(nil)

// HTTPProvider validates credentials against the site's /validate-user endpoint.
type HTTPProvider struct {
	base        string
	randomParam string
	client      *http.Client
}

func NewHTTPProvider(base, randomParam string, timeout time.Duration) (*HTTPProvider, error) {
	if base == "" {
		return nil, errors.New("identity url empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		base:        strings.TrimRight(base, "/"),
		randomParam: randomParam,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (p *HTTPProvider) Validate(ctx context.Context, username, password string) (int64, error) {
	reqBody := struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		RandomParam string `json:"random_param"`
	}{Username: username, Password: password, RandomParam: p.randomParam}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("identity: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/validate-user", bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: identity: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: identity: http %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, fmt.Errorf("%w: identity: read body: %v", domain.ErrUpstreamUnavailable, err)
	}
	var payload struct {
		UserID json.RawMessage `json:"userID"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("%w: identity: invalid response body", domain.ErrUpstreamUnavailable)
	}
	id, ok := parseUserID(payload.UserID)
	if !ok {
		return 0, domain.ErrInvalidCredentials
	}
	return id, nil
}

// parseUserID accepts both numeric and string ids; zero, null or absent means no user.
func parseUserID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if id, err := strconv.ParseInt(n.String(), 10, 64); err == nil && id > 0 {
			return id, true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}
