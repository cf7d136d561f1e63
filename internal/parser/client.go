// Package parser calls the external ingredient parsing service. The service
// is an opaque collaborator: free text in, structured ingredient lines out.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnparsable indicates the service could not parse the submitted text.
// Handlers map it to a 400; every other failure is a 500.
var ErrUnparsable = errors.New("parser: unparsable text")

// ErrNotConfigured indicates no parser endpoint or API key is configured.
var ErrNotConfigured = errors.New("parser: not configured")

// ParsedIngredient is one structured line returned by the service.
type ParsedIngredient struct {
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	IngredientName string  `json:"ingredientName"`
}

// Client talks to the ingredient parsing service.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client for the given endpoint and API key.
func NewClient(url, apiKey string) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Parse submits free text and returns the structured ingredient lines.
func (c *Client) Parse(ctx context.Context, text string) ([]ParsedIngredient, error) {
	if c == nil || c.url == "" || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload, errMarshal := json.Marshal(map[string]string{"text": text})
	if errMarshal != nil {
		return nil, fmt.Errorf("parser: marshal request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if errReq != nil {
		return nil, fmt.Errorf("parser: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("parser: request failed: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrUnparsable
	default:
		return nil, fmt.Errorf("parser: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Ingredients []ParsedIngredient `json:"ingredients"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&out); errDecode != nil {
		return nil, fmt.Errorf("parser: decode response: %w", errDecode)
	}
	return out.Ingredients, nil
}
