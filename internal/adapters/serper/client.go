package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// DefaultBaseURL is the public Serper endpoint
const DefaultBaseURL = "https://google.serper.dev"

// Result is one organic or news hit
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
	News    []Result `json:"news"`
}

// Client queries the Serper Google search API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a Serper client. An empty key is accepted; calls then fail with ErrMissingCredentials.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.Get().With("component", "serper"),
	}
}

// Search returns up to num organic results
func (c *Client) Search(ctx context.Context, query string, num int) ([]Result, error) {
	resp, err := c.query(ctx, "/search", query, num)
	if err != nil {
		return nil, err
	}
	return limit(resp.Organic, num), nil
}

// News returns up to num news results
func (c *Client) News(ctx context.Context, query string, num int) ([]Result, error) {
	resp, err := c.query(ctx, "/news", query, num)
	if err != nil {
		return nil, err
	}
	return limit(resp.News, num), nil
}

func (c *Client) query(ctx context.Context, path, query string, num int) (*searchResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrMissingCredentials, "SERPER_API_KEY is not set")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty search query")
	}

	payload, err := json.Marshal(map[string]any{"q": query, "num": num})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "serper request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("serper returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to decode serper response")
	}

	c.log.Debugw("Serper query", "path", path, "organic", len(out.Organic), "news", len(out.News))
	return &out, nil
}

func limit(items []Result, n int) []Result {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
