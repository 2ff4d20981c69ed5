/**
 * @description
 * This package provides a client for a remote payment-authorization gateway.
 * It encapsulates the logic for making authenticated HTTP requests to the
 * gateway's authorization endpoint, handling request body construction, and
 * parsing responses. The client satisfies the lifecycle service's
 * PaymentAuthorizer boundary, so it can be swapped in for the built-in stub
 * purely through configuration.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the payment gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment gateway API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthorizationRequest is the payload sent to the gateway's authorize endpoint.
type AuthorizationRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

// AuthorizationResponse is the expected response from the authorize endpoint.
type AuthorizationResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// ErrorResponse represents an error from the gateway API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("gateway api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown gateway api error"
}

// Authorize asks the gateway whether a payment may be captured. It implements
// the lifecycle service's PaymentAuthorizer interface.
func (c *Client) Authorize(ctx context.Context, accountNumber string, amount int64) (bool, error) {
	payload := AuthorizationRequest{
		AccountNumber: accountNumber,
		Amount:        amount,
		Currency:      "USD",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal authorization request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/v1/authorizations", bytes.NewBuffer(body))
	if err != nil {
		return false, fmt.Errorf("failed to create authorization request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-gateway-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute authorization request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read authorization response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=gateway_client op=authorize status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return false, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		return false, &errResp
	}

	var authResp AuthorizationResponse
	if err := json.Unmarshal(bodyBytes, &authResp); err != nil {
		return false, fmt.Errorf("failed to decode authorization response: %w", err)
	}

	if !authResp.Approved {
		log.Printf("level=info component=gateway_client op=authorize outcome=rejected account=%s reason=%q", accountNumber, authResp.Reason)
	}
	return authResp.Approved, nil
}
