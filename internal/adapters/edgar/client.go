package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"stockcrew/internal/adapters/scraper"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

const (
	DefaultBaseURL     = "https://www.sec.gov"
	DefaultDataBaseURL = "https://data.sec.gov"

	FormQuarterly = "10-Q"
	FormAnnual    = "10-K"
)

// Filing identifies one document in the EDGAR archive
type Filing struct {
	CIK             int64
	Ticker          string
	Company         string
	Form            string
	AccessionNumber string
	FilingDate      string
	PrimaryDocument string
}

// Options configures the client
type Options struct {
	UserAgent   string
	BaseURL     string
	DataBaseURL string
	Timeout     time.Duration
}

// Client resolves tickers and downloads filings from SEC EDGAR
type Client struct {
	userAgent   string
	baseURL     string
	dataBaseURL string
	httpClient  *http.Client
	log         *logger.Logger

	mu      sync.Mutex
	tickers map[string]company
}

type company struct {
	CIK   int64  `json:"cik_str"`
	Title string `json:"title"`
}

// NewClient creates an EDGAR client. SEC rejects requests without a descriptive User-Agent.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.DataBaseURL == "" {
		opts.DataBaseURL = DefaultDataBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		userAgent:   opts.UserAgent,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		dataBaseURL: strings.TrimRight(opts.DataBaseURL, "/"),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		log:         logger.Get().With("component", "edgar"),
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "edgar request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errors.ErrNotFound, "edgar %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edgar returned status %d for %s", resp.StatusCode, url)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

// lookupTicker maps a ticker to its company, loading the SEC ticker table once
func (c *Client) lookupTicker(ctx context.Context, ticker string) (company, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tickers == nil {
		body, err := c.get(ctx, c.baseURL+"/files/company_tickers.json")
		if err != nil {
			return company{}, errors.Wrap(err, "load ticker table")
		}

		var raw map[string]struct {
			CIK    int64  `json:"cik_str"`
			Ticker string `json:"ticker"`
			Title  string `json:"title"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return company{}, errors.Wrap(err, "decode ticker table")
		}

		tickers := make(map[string]company, len(raw))
		for _, row := range raw {
			tickers[strings.ToUpper(row.Ticker)] = company{CIK: row.CIK, Title: row.Title}
		}
		c.tickers = tickers
	}

	co, ok := c.tickers[strings.ToUpper(ticker)]
	if !ok {
		return company{}, errors.Wrapf(errors.ErrFilingNotFound, "unknown ticker %s", ticker)
	}
	return co, nil
}

// LatestFiling returns the most recent filing of form for ticker
func (c *Client) LatestFiling(ctx context.Context, ticker, form string) (Filing, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Filing{}, errors.Wrap(errors.ErrInvalidInput, "empty ticker")
	}

	co, err := c.lookupTicker(ctx, ticker)
	if err != nil {
		return Filing{}, err
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%010d.json", c.dataBaseURL, co.CIK))
	if err != nil {
		return Filing{}, errors.Wrap(err, "load submissions")
	}

	var subs struct {
		Filings struct {
			Recent struct {
				AccessionNumber []string `json:"accessionNumber"`
				FilingDate      []string `json:"filingDate"`
				Form            []string `json:"form"`
				PrimaryDocument []string `json:"primaryDocument"`
			} `json:"recent"`
		} `json:"filings"`
	}
	if err := json.Unmarshal(body, &subs); err != nil {
		return Filing{}, errors.Wrap(err, "decode submissions")
	}

	recent := subs.Filings.Recent
	// recent filings are listed newest first
	for i, f := range recent.Form {
		if f != form || i >= len(recent.AccessionNumber) || i >= len(recent.PrimaryDocument) {
			continue
		}
		filing := Filing{
			CIK:             co.CIK,
			Ticker:          ticker,
			Company:         co.Title,
			Form:            form,
			AccessionNumber: recent.AccessionNumber[i],
			PrimaryDocument: recent.PrimaryDocument[i],
		}
		if i < len(recent.FilingDate) {
			filing.FilingDate = recent.FilingDate[i]
		}
		return filing, nil
	}

	return Filing{}, errors.Wrapf(errors.ErrFilingNotFound, "no %s for %s", form, ticker)
}

// DocumentURL is the archive location of the filing's primary document
func (c *Client) DocumentURL(f Filing) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s",
		c.baseURL, f.CIK, strings.ReplaceAll(f.AccessionNumber, "-", ""), f.PrimaryDocument)
}

// FilingText downloads the primary document and returns its readable text
func (c *Client) FilingText(ctx context.Context, f Filing) (string, error) {
	docURL := c.DocumentURL(f)
	body, err := c.get(ctx, docURL)
	if err != nil {
		return "", errors.Wrap(err, "download filing")
	}

	page, err := scraper.Extract(string(body), docURL)
	if err != nil {
		return "", err
	}
	if page.Text == "" {
		return "", errors.Wrapf(errors.ErrFilingNotFound, "filing %s has no text", f.AccessionNumber)
	}

	c.log.Debugw("Loaded filing", "ticker", f.Ticker, "form", f.Form, "accession", f.AccessionNumber, "chars", len(page.Text))
	return page.Text, nil
}
