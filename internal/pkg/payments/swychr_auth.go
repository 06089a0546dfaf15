package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// tokenSafetyMargin shortens the cached token lifetime so a request never
// starts with a token about to expire mid-flight.
const tokenSafetyMargin = 5 * time.Minute

// defaultTokenTTL is assumed when the gateway omits expires_in.
const defaultTokenTTL = 30 * time.Minute

// swychrAuth caches the bearer token for the SwyChr gateway: a (value,
// expiry) pair behind a mutex, refreshed by credential exchange when stale.
type swychrAuth struct {
	email    string
	password string
	authURL  string

	httpClient *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newSwychrAuth(email, password, authURL string, client *http.Client) *swychrAuth {
	return &swychrAuth{
		email:      email,
		password:   password,
		authURL:    authURL,
		httpClient: client,
	}
}

// getToken returns the cached token while it is fresh, otherwise performs
// a credential exchange and caches the result.
func (a *swychrAuth) getToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiry) {
		return a.token, nil
	}
	return a.refreshLocked(ctx)
}

// invalidate drops the cached token so the next call re-authenticates.
func (a *swychrAuth) invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expiry = time.Time{}
	a.mu.Unlock()
}

func (a *swychrAuth) refreshLocked(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    a.email,
		"password": a.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("swychr auth failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Data struct {
			Token     string `json:"token"`
			ExpiresIn int    `json:"expires_in"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("swychr auth response: %w", err)
	}
	if out.Data.Token == "" {
		return "", fmt.Errorf("swychr auth returned empty token")
	}

	ttl := defaultTokenTTL
	if out.Data.ExpiresIn > 0 {
		ttl = time.Duration(out.Data.ExpiresIn) * time.Second
	}
	if ttl > tokenSafetyMargin {
		ttl -= tokenSafetyMargin
	}

	a.token = out.Data.Token
	a.expiry = time.Now().Add(ttl)
	return a.token, nil
}

// doAuthenticated performs a bearer-authenticated request. On a 401 it
// clears the cache, re-acquires a token exactly once and retries once; a
// second failure propagates. This tolerates token expiry races without
// masking persistent auth failures behind a retry loop.
func (a *swychrAuth) doAuthenticated(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	status, body, err := a.doOnce(ctx, method, endpoint, payload)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized {
		return status, body, nil
	}

	a.invalidate()
	return a.doOnce(ctx, method, endpoint, payload)
}

func (a *swychrAuth) doOnce(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	token, err := a.getToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, respBody, nil
}
