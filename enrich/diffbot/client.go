// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diffbot looks people up in the Diffbot Knowledge Graph.
package diffbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://kg.diffbot.com/kg/v3"
	DefaultTimeout = 10 * time.Second
)

// ErrTokenRequired is returned by NewClient without an API token.
var ErrTokenRequired = errors.New("diffbot: API token is required")

// Config holds configuration for the Diffbot client.
type Config struct {
	// Token is the Diffbot API token (required).
	Token string

	// BaseURL is the Knowledge Graph API root (default: https://kg.diffbot.com/kg/v3).
	BaseURL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration

	Logger *slog.Logger
}

// Client describes people using the Knowledge Graph "enhance" endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

type enhanceResponse struct {
	Data []struct {
		Entity struct {
			Description string `json:"description"`
		} `json:"entity"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// NewClient creates a Diffbot client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrTokenRequired
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		logger:  cfg.Logger.With("component", "diffbot"),
	}, nil
}

// Describe returns the description of the best Person match for name and
// email. An empty string means nobody was found.
func (c *Client) Describe(ctx context.Context, name, email string) (string, error) {
	q := url.Values{}
	q.Set("type", "Person")
	q.Set("name", name)
	if email != "" {
		q.Set("email", email)
	}
	q.Set("size", "1")
	q.Set("refresh", "false")
	q.Set("search", "false")
	q.Set("nonCanonicalFacts", "false")
	q.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/enhance?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("diffbot: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("diffbot: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("diffbot: bad status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result enhanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("diffbot: decode response: %w", err)
	}
	if len(result.Data) == 0 {
		c.logger.Debug("no knowledge graph match", "name", name)
		return "", nil
	}
	return strings.TrimSpace(result.Data[0].Entity.Description), nil
}
