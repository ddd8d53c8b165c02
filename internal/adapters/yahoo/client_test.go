package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

const quoteSummaryBody = `{"quoteSummary":{"result":[{
  "assetProfile":{"city":"Cupertino","sector":"Technology","fullTimeEmployees":161000,"maxAge":86400},
  "summaryDetail":{"trailingPE":{"raw":31.25,"fmt":"31.25"},"dividendYield":{"raw":0.0044,"fmt":"0.44%"},"forwardPE":{}},
  "defaultKeyStatistics":{"pegRatio":{"fmt":"2.1"}},
  "price":{"longName":"Apple Inc.","marketCap":{"raw":3000000000000,"fmt":"3T"}}
}],"error":null}}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var crumbCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&crumbCalls, 1)
		_, _ = w.Write([]byte("crumb-1"))
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(Options{BaseURL: srv.URL, CookieURL: srv.URL + "/cookie"}), &crumbCalls
}

func TestQuoteSummaryFlattens(t *testing.T) {
	client, crumbCalls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/AAPL"))
		assert.Equal(t, "crumb-1", r.URL.Query().Get("crumb"))
		_, _ = w.Write([]byte(quoteSummaryBody))
	})

	info, err := client.QuoteSummary(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, json.Number("31.25"), info["trailingPE"])
	assert.Equal(t, json.Number("0.0044"), info["dividendYield"])
	assert.Equal(t, json.Number("3000000000000"), info["marketCap"])
	assert.Equal(t, "2.1", info["pegRatio"])
	assert.Equal(t, "Apple Inc.", info["longName"])
	assert.Equal(t, "Cupertino", info["city"])
	_, hasForward := info["forwardPE"]
	assert.False(t, hasForward, "empty objects are dropped")

	_, err = client.QuoteSummary(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(crumbCalls), "crumb is cached")
}

func TestQuoteSummaryNotFound(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol: ZZZZ"}}}`))
	})

	_, err := client.QuoteSummary(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestHistory(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/MSFT", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		// 2024-01-02 and 2024-01-03 14:30 UTC, one missing close
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"gmtoffset":-18000},
			"timestamp":[1704205800,1704292200,1704378600],
			"indicators":{"quote":[{"close":[370.8699951171875,null,367.94]}]}
		}],"error":null}}`))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := client.History(context.Background(), "msft", start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-02", bars[0].Date.Format(time.DateOnly))
	assert.Equal(t, "370.8699951172", bars[0].Close.String())
	assert.Equal(t, "2024-01-04", bars[1].Date.Format(time.DateOnly))
}

func TestHistoryUnknownSymbol(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	start := time.Now().AddDate(0, -1, 0)
	bars, err := client.History(context.Background(), "NOPE", start, time.Now())
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	client := NewClient(Options{})
	now := time.Now()
	_, err := client.History(context.Background(), "AAPL", now, now.AddDate(0, 0, -1))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestNews(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "TSLA", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"news":[
			{"title":"Tesla deliveries beat","publisher":"Reuters","link":"https://x/1","providerPublishTime":1700000000},
			{"title":"","publisher":"skip","link":"https://x/2"}
		]}`))
	})

	items, err := client.News(context.Background(), "tsla", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Reuters", items[0].Publisher)
	assert.Equal(t, int64(1700000000), items[0].PublishedAt.Unix())
}
