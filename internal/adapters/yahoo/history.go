package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockcrew/pkg/errors"
)

// closePrecision matches the 10 significant decimals of a pandas JSON export
const closePrecision = 10

// Bar is one daily close
type Bar struct {
	Date  time.Time
	Close decimal.Decimal
}

// History returns daily closes in [start, end), oldest first. Days without a
// close are skipped. An unknown symbol yields an empty slice.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty symbol")
	}
	if !end.After(start) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "end %s must be after start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")

	body, status, err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					GMTOffset int64 `json:"gmtoffset"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *apiError `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(err, "decode chart (status %d)", status)
	}
	if e := payload.Chart.Error; e != nil {
		if e.Code == "Not Found" || status == http.StatusNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(e, "yahoo chart")
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}

	res := payload.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := res.Indicators.Quote[0].Close

	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		// exchange-local trading day
		day := time.Unix(ts+res.Meta.GMTOffset, 0).UTC()
		bars = append(bars, Bar{
			Date:  time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Close: decimal.NewFromFloat(*closes[i]).Round(closePrecision),
		})
	}
	return bars, nil
}
