package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ApiClient handles requests to the shackbot chat API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

// NewApiClient creates a client from SHACKBOT_API_URL and SHACKBOT_TOKEN
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("SHACKBOT_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &ApiClient{
		// model calls are retried server side, so allow for a few attempts
		httpClient: &http.Client{Timeout: 90 * time.Second},
		BaseURL:    baseURL,
		Token:      os.Getenv("SHACKBOT_TOKEN"),
	}
}

// CartLine is one line of the cart
type CartLine struct {
	ItemName   string `json:"item_name"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Cart is the session's current order
type Cart struct {
	State      string     `json:"state"`
	Lines      []CartLine `json:"lines"`
	TotalCents int64      `json:"total_cents"`
	Total      string     `json:"total"`
}

// Reply is the server's answer to a message or cart action
type Reply struct {
	MessageID string `json:"message_id"`
	Text      string `json:"reply"`
	Intent    string `json:"intent"`
	Cart      Cart   `json:"cart"`
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() error {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}
	return nil
}

// CreateSession starts a chat session and returns its id
func (c *ApiClient) CreateSession() (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(http.MethodPost, "/api/v1/sessions", nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Chat sends one message. Resending the same messageID returns the
// original reply without applying it twice.
func (c *ApiClient) Chat(sessionID, messageID, message string) (Reply, error) {
	body := map[string]string{
		"session_id": sessionID,
		"message_id": messageID,
		"message":    message,
	}
	var reply Reply
	err := c.do(http.MethodPost, "/api/v1/chat", body, &reply)
	return reply, err
}

// ClearCart empties the session's order
func (c *ApiClient) ClearCart(sessionID string) (Reply, error) {
	var reply Reply
	err := c.do(http.MethodDelete, "/api/v1/sessions/"+sessionID+"/cart", nil, &reply)
	return reply, err
}

// Checkout places the session's order
func (c *ApiClient) Checkout(sessionID string) (Reply, error) {
	var reply Reply
	err := c.do(http.MethodPost, "/api/v1/sessions/"+sessionID+"/checkout", nil, &reply)
	return reply, err
}

func (c *ApiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("API error: %s", apiErr.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
