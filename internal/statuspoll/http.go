package statuspoll

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"partner-onboarding/internal/verification"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPFetcher reads GET /verification-status with a partner bearer token.
type HTTPFetcher struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewHTTPFetcher builds a fetcher against the API at baseURL.
func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type statusResponse struct {
	VerificationStatus verification.AggregateStatus `json:"verificationStatus"`
}

// Fetch satisfies FetchFunc.
func (f *HTTPFetcher) Fetch(ctx context.Context) (verification.AggregateStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/verification-status", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("verification status: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out statusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode verification status: %w", err)
	}
	switch out.VerificationStatus {
	case verification.StatusNotSubmitted, verification.StatusPending, verification.StatusApproved:
		return out.VerificationStatus, nil
	}
	return "", fmt.Errorf("unknown verification status %q", out.VerificationStatus)
}
