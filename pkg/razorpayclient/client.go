/**
 * @description
 * This package provides a client for the payment gateway's order API. It
 * encapsulates the logic for making authenticated HTTP requests, handling
 * request/response bodies, and managing errors from the API.
 *
 * @notes
 * - It includes a default HTTP client with a timeout to prevent requests
 *   from hanging indefinitely.
 * - Error handling returns a formatted error that includes the status code
 *   and response body for easier debugging.
 */
package razorpayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/renewly/renewal-service/internal/domain"
)

// Client is a client for the payment gateway's REST API.
type Client struct {
	BaseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewClient creates a new gateway client authenticated with the key pair.
func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		BaseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateOrder opens a payment order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req domain.PaymentOrderRequest) (*domain.PaymentOrder, error) {
	url := fmt.Sprintf("%s/v1/orders", c.BaseURL)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.handleErrorResponse(resp)
	}

	var order domain.PaymentOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode successful response: %w", err)
	}
	return &order, nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("payment gateway returned status %d and the response body could not be read", resp.StatusCode)
	}
	return fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(respBody))
}
