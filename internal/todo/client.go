// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package todo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
)

const (
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	ReadPath       = "/todos"
	WritePath      = "/posts"
)

// Client talks to the remote todo service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a Client for baseURL. An empty baseURL selects
// DefaultBaseURL and a zero timeout leaves requests bounded only by their
// context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Fetch lists every todo record.
func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	url := c.BaseURL + ReadPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	log.Debugf("GET %s", url)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	var doc bytes.Buffer
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	records, err := Decode(doc.Bytes())
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	log.Debugf("GET %s: %d records", url, len(records))
	return records, nil
}

// Create submits rec to the write endpoint. The response body is ignored.
func (c *Client) Create(ctx context.Context, rec NewRecord) error {
	url := c.BaseURL + WritePath

	body, err := json.Marshal(rec)
	if err != nil {
		return &WriteError{URL: url, Err: fmt.Errorf("failed to encode record: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &WriteError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debugf("POST %s %s", url, body)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &WriteError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &WriteError{URL: url, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	return nil
}
