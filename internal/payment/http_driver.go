package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/playmatatu/royale/internal/config"
	"github.com/redis/go-redis/v9"
)

// Transfer states reported by the payout service
const (
	TransferSuccessful = "Successful"
	TransferPending    = "Pending"
	TransferFailed     = "Failed"
)

// HTTPDriver talks to a custodial payout service over HTTP with OAuth2
// client credentials.
type HTTPDriver struct {
	baseURL         string
	tokenURL        string
	clientID        string
	clientSecret    string
	rdb             *redis.Client
	httpClient      *http.Client
	cacheKey        string
	confirmInterval time.Duration
}

// NewHTTPDriver creates an HTTP payout driver. Returns nil if not configured.
func NewHTTPDriver(cfg *config.Config, rdb *redis.Client) *HTTPDriver {
	if cfg == nil || cfg.PayoutBaseURL == "" || cfg.PayoutClientID == "" || cfg.PayoutClientSecret == "" {
		log.Printf("[PAYOUT] HTTP payout driver not fully configured - skipping initialization")
		return nil
	}

	return &HTTPDriver{
		baseURL:         strings.TrimRight(cfg.PayoutBaseURL, "/"),
		tokenURL:        cfg.PayoutTokenURL,
		clientID:        cfg.PayoutClientID,
		clientSecret:    cfg.PayoutClientSecret,
		rdb:             rdb,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		cacheKey:        "payout_token:",
		confirmInterval: 2 * time.Second,
	}
}

func (d *HTTPDriver) tokenCacheKey() string {
	return d.cacheKey + d.clientID[:min(8, len(d.clientID))]
}

// getAccessToken fetches or retrieves cached OAuth2 token
func (d *HTTPDriver) getAccessToken(ctx context.Context) (string, error) {
	if d.rdb != nil {
		if token, err := d.rdb.Get(ctx, d.tokenCacheKey()).Result(); err == nil {
			return token, nil
		}
	}

	log.Printf("[PAYOUT] Fetching new payout service access token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+d.tokenURL, bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(d.clientID + ":" + d.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("no access_token in response")
	}

	// Cache with 90% of expiry time
	if d.rdb != nil && tokenResp.ExpiresIn > 0 {
		ttl := time.Duration(float64(tokenResp.ExpiresIn)*0.9) * time.Second
		d.rdb.Set(ctx, d.tokenCacheKey(), tokenResp.AccessToken, ttl)
	}

	return tokenResp.AccessToken, nil
}

func (d *HTTPDriver) clearToken(ctx context.Context) {
	if d.rdb != nil {
		d.rdb.Del(ctx, d.tokenCacheKey())
		log.Printf("[PAYOUT] 403 error - cleared cached token")
	}
}

// transferResponse is returned by both the transfer and status endpoints
type transferResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// do sends an authenticated JSON request, retrying transient failures.
func (d *HTTPDriver) do(ctx context.Context, method, endpoint string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(100+attempt*200) * time.Millisecond):
			}
		}

		token, err := d.getAccessToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response: %w (body: %s)", err, string(respBody))
			}
			return nil
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
			d.clearToken(ctx)
			return fmt.Errorf("payout service auth error: %d", resp.StatusCode)
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("payout service status %d: %s", resp.StatusCode, string(respBody))
			continue
		default:
			var errResp transferResponse
			json.Unmarshal(respBody, &errResp)
			if errResp.Message == "" {
				errResp.Message = string(respBody)
			}
			return fmt.Errorf("payout service rejected request: %d - %s", resp.StatusCode, errResp.Message)
		}
	}

	return fmt.Errorf("payout service request failed after retries: %w", lastErr)
}

// Transfer sends funds and waits until the transfer is confirmed or fails
func (d *HTTPDriver) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	payload := map[string]interface{}{
		"recipient":   req.Recipient,
		"amount":      req.Amount,
		"reference":   req.Reference,
		"description": "Winner payout for " + req.GameID,
	}

	log.Printf("[PAYOUT] Initiating transfer: recipient=%s amount=%.4f ref=%s", req.Recipient, req.Amount, req.Reference)

	var resp transferResponse
	if err := d.do(ctx, http.MethodPost, d.baseURL+"/api/v1/transfers", payload, &resp); err != nil {
		return "", err
	}
	return d.confirm(ctx, resp)
}

// confirm polls the status endpoint while a transfer is pending.
func (d *HTTPDriver) confirm(ctx context.Context, resp transferResponse) (string, error) {
	ticker := time.NewTicker(d.confirmInterval)
	defer ticker.Stop()

	for {
		switch resp.Status {
		case TransferSuccessful:
			return resp.Signature, nil
		case TransferFailed:
			if resp.Message == "" {
				resp.Message = "transfer failed"
			}
			return "", errors.New(resp.Message)
		case TransferPending:
			log.Printf("[PAYOUT] Transfer %s still pending", resp.TransactionID)
		default:
			log.Printf("[PAYOUT] Transfer %s has unknown status '%s', treating as pending", resp.TransactionID, resp.Status)
		}

		if resp.TransactionID == "" {
			return "", fmt.Errorf("transfer pending without transaction id")
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transfer %s not confirmed: %w", resp.TransactionID, ctx.Err())
		case <-ticker.C:
		}

		var next transferResponse
		if err := d.do(ctx, http.MethodGet, d.baseURL+"/api/v1/transfers/"+resp.TransactionID, nil, &next); err != nil {
			return "", err
		}
		if next.TransactionID == "" {
			next.TransactionID = resp.TransactionID
		}
		resp = next
	}
}

// Balance returns the game wallet balance
func (d *HTTPDriver) Balance(ctx context.Context) (float64, error) {
	var resp struct {
		Balance float64 `json:"balance"`
	}
	if err := d.do(ctx, http.MethodGet, d.baseURL+"/api/v1/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}
