package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

const (
	// DefaultBaseURL serves quoteSummary, chart and search
	DefaultBaseURL = "https://query2.finance.yahoo.com"
	// DefaultCookieURL hands out the session cookie required for a crumb
	DefaultCookieURL = "https://fc.yahoo.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// quoteModules mirrors the modules merged into a single info dictionary
var quoteModules = []string{
	"assetProfile",
	"summaryProfile",
	"summaryDetail",
	"defaultKeyStatistics",
	"financialData",
	"price",
	"quoteType",
}

// Options configures the client
type Options struct {
	BaseURL   string
	CookieURL string
	Timeout   time.Duration
}

// Client talks to the unofficial Yahoo Finance JSON endpoints
type Client struct {
	baseURL    string
	cookieURL  string
	httpClient *http.Client
	log        *logger.Logger

	mu    sync.Mutex
	crumb string
}

// NewClient creates a Yahoo Finance client with its own cookie jar
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CookieURL == "" {
		opts.CookieURL = DefaultCookieURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		cookieURL:  opts.CookieURL,
		httpClient: &http.Client{Timeout: opts.Timeout, Jar: jar},
		log:        logger.Get().With("component", "yahoo_finance"),
	}
}

// ensureCrumb performs the cookie + crumb handshake once per client
func (c *Client) ensureCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	// fc.yahoo.com answers 404 but sets the cookie; only transport errors matter
	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil); err == nil {
		req.Header.Set("User-Agent", userAgent)
		if resp, err := c.httpClient.Do(req); err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	body, status, err := c.get(ctx, "/v1/test/getcrumb", nil)
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", errors.Wrapf(errors.ErrUnavailable, "yahoo crumb request returned status %d", status)
	}

	c.crumb = crumb
	return crumb, nil
}

func (c *Client) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "yahoo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "failed to read yahoo response")
	}
	return body, resp.StatusCode, nil
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// QuoteSummary returns the flattened info dictionary for symbol: every field of the
// profile, detail, statistics, financial and price modules keyed by its Yahoo name,
// with {raw, fmt} wrappers reduced to the raw value. Numbers are json.Number.
func (c *Client) QuoteSummary(ctx context.Context, symbol string) (map[string]any, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty symbol")
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		crumb, err := c.ensureCrumb(ctx)
		if err != nil {
			return nil, err
		}

		q := url.Values{}
		q.Set("modules", strings.Join(quoteModules, ","))
		q.Set("crumb", crumb)

		body, status, err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			// stale crumb
			c.resetCrumb()
			lastErr = errors.Wrapf(errors.ErrUnavailable, "yahoo quoteSummary unauthorized for %s", symbol)
			continue
		}

		var payload struct {
			QuoteSummary struct {
				Result []map[string]json.RawMessage `json:"result"`
				Error  *apiError                    `json:"error"`
			} `json:"quoteSummary"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, errors.Wrapf(err, "decode quoteSummary (status %d)", status)
		}
		if payload.QuoteSummary.Error != nil {
			if payload.QuoteSummary.Error.Code == "Not Found" {
				return nil, errors.Wrapf(errors.ErrNotFound, "quote for %s", symbol)
			}
			return nil, errors.Wrap(payload.QuoteSummary.Error, "yahoo quoteSummary")
		}
		if len(payload.QuoteSummary.Result) == 0 {
			return nil, errors.Wrapf(errors.ErrNotFound, "quote for %s", symbol)
		}

		return flattenModules(payload.QuoteSummary.Result[0])
	}
	return nil, lastErr
}

func flattenModules(modules map[string]json.RawMessage) (map[string]any, error) {
	info := make(map[string]any)
	for _, name := range quoteModules {
		raw, ok := modules[name]
		if !ok {
			continue
		}
		var fields map[string]any
		if err := decodeNumbers(raw, &fields); err != nil {
			return nil, errors.Wrapf(err, "decode module %s", name)
		}
		for key, val := range fields {
			if _, seen := info[key]; seen {
				continue
			}
			if v, keep := unwrapValue(val); keep {
				info[key] = v
			}
		}
	}
	return info, nil
}

// unwrapValue reduces {raw, fmt} objects; empty objects are dropped
func unwrapValue(val any) (any, bool) {
	m, ok := val.(map[string]any)
	if !ok {
		return val, val != nil
	}
	if len(m) == 0 {
		return nil, false
	}
	if raw, ok := m["raw"]; ok {
		return raw, true
	}
	if f, ok := m["fmt"]; ok {
		return f, true
	}
	return m, true
}

func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}
