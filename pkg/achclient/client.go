/**
 * @description
 * This package provides a client for the ACH processor gateway. It encapsulates
 * the logic for making authenticated HTTP requests to the processor's
 * endpoints, handling request body construction, and parsing responses.
 *
 * The service uses two operations: account verification when a funding bank
 * account is added, and payment origination when the due-schedule job bills a
 * recurring schedule.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Exact dollar amounts on the wire.
 */
package achclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a client for the ACH processor API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new ACH processor API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// VerifyAccountRequest is the payload for account verification.
type VerifyAccountRequest struct {
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	AccountType   string `json:"account_type"`
}

// VerifyAccountResponse is the processor's verdict on an account.
type VerifyAccountResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

// OriginatePaymentRequest is the payload for originating an ACH payment.
type OriginatePaymentRequest struct {
	RoutingNumber string          `json:"routing_number"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo"`
	TransferMode  string          `json:"transfer_mode"`
}

// OriginatePaymentResponse carries the processor confirmation number for an
// accepted origination.
type OriginatePaymentResponse struct {
	Confirmation string `json:"confirmation"`
	Status       int    `json:"status"`
}

// ErrorResponse represents an error from the processor API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ach processor error: %s - %s", e.Code, e.Message)
	}
	return "unknown ach processor error"
}

// VerifyAccount asks the processor to verify routing and account details.
func (c *Client) VerifyAccount(ctx context.Context, req VerifyAccountRequest) (*VerifyAccountResponse, error) {
	var resp VerifyAccountResponse
	if err := c.doPost(ctx, "/api/v1/accounts/verify", "verify_account", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OriginatePayment submits an ACH payment and returns the processor
// confirmation number.
func (c *Client) OriginatePayment(ctx context.Context, req OriginatePaymentRequest) (*OriginatePaymentResponse, error) {
	var resp OriginatePaymentResponse
	if err := c.doPost(ctx, "/api/v1/payments", "originate_payment", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doPost executes one authenticated JSON request against the processor.
func (c *Client) doPost(ctx context.Context, path, op string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=ach_client op=%s status=%d msg=\"non-2xx response (unparsable error body)\"", op, resp.StatusCode)
			return fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=ach_client op=%s status=%d code=%q message=%q", op, resp.StatusCode, errResp.Code, errResp.Message)
		return &errResp
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
