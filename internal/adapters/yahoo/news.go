package yahoo

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockcrew/pkg/errors"
)

// NewsItem is one headline linked to a ticker
type NewsItem struct {
	Title       string
	Publisher   string
	Link        string
	PublishedAt time.Time
}

// News returns recent headlines for ticker
func (c *Client) News(ctx context.Context, ticker string, count int) ([]NewsItem, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty ticker")
	}
	if count <= 0 {
		count = 10
	}

	q := url.Values{}
	q.Set("q", ticker)
	q.Set("quotesCount", "0")
	q.Set("newsCount", strconv.Itoa(count))

	body, status, err := c.get(ctx, "/v1/finance/search", q)
	if err != nil {
		return nil, err
	}

	var payload struct {
		News []struct {
			Title               string `json:"title"`
			Publisher           string `json:"publisher"`
			Link                string `json:"link"`
			ProviderPublishTime int64  `json:"providerPublishTime"`
		} `json:"news"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(err, "decode news (status %d)", status)
	}

	items := make([]NewsItem, 0, len(payload.News))
	for _, n := range payload.News {
		if n.Title == "" {
			continue
		}
		items = append(items, NewsItem{
			Title:       n.Title,
			Publisher:   n.Publisher,
			Link:        n.Link,
			PublishedAt: time.Unix(n.ProviderPublishTime, 0).UTC(),
		})
	}
	return items, nil
}
