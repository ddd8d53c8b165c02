package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

const filingHTML = `<html><body><article>
<h2>Management's Discussion and Analysis</h2>
<p>Net sales increased due to higher iPhone and Services revenue. Services gross margin improved on a favorable mix.</p>
<h2>Risk Factors</h2>
<p>The company faces supply chain risk, foreign exchange risk and regulatory risk in the European Union under the Digital Markets Act.</p>
<h2>Insider transactions</h2>
<p>Executive officers sold shares under pre-arranged trading plans during the quarter.</p>
</article></body></html>`

func newEdgarServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stockcrew test@example.com", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."}}`))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"filings":{"recent":{
			"accessionNumber":["0000320193-24-000081","0000320193-24-000069","0000320193-23-000106"],
			"filingDate":["2024-08-02","2024-05-03","2023-11-03"],
			"form":["8-K","10-Q","10-K"],
			"primaryDocument":["a8k.htm","aapl-20240330.htm","aapl-20230930.htm"]
		}}}`))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019324000069/aapl-20240330.htm", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(filingHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestFiling(t *testing.T) {
	srv := newEdgarServer(t)
	c := NewClient(Options{UserAgent: "stockcrew test@example.com", BaseURL: srv.URL, DataBaseURL: srv.URL})

	f, err := c.LatestFiling(context.Background(), "aapl", FormQuarterly)
	require.NoError(t, err)
	assert.Equal(t, "0000320193-24-000069", f.AccessionNumber)
	assert.Equal(t, "2024-05-03", f.FilingDate)
	assert.Equal(t, "Apple Inc.", f.Company)
	assert.Equal(t, srv.URL+"/Archives/edgar/data/320193/000032019324000069/aapl-20240330.htm", c.DocumentURL(f))

	annual, err := c.LatestFiling(context.Background(), "AAPL", FormAnnual)
	require.NoError(t, err)
	assert.Equal(t, "aapl-20230930.htm", annual.PrimaryDocument)
}

func TestLatestFilingUnknownTicker(t *testing.T) {
	srv := newEdgarServer(t)
	c := NewClient(Options{UserAgent: "stockcrew test@example.com", BaseURL: srv.URL, DataBaseURL: srv.URL})

	_, err := c.LatestFiling(context.Background(), "ZZZZ", FormQuarterly)
	assert.True(t, errors.Is(err, errors.ErrFilingNotFound))
}

func TestSearcherRanksPassages(t *testing.T) {
	srv := newEdgarServer(t)
	c := NewClient(Options{UserAgent: "stockcrew test@example.com", BaseURL: srv.URL, DataBaseURL: srv.URL})
	s := NewSearcher(c, nil, 1)

	filing, passages, err := s.Search(context.Background(), "AAPL", FormQuarterly, "insider trading activity")
	require.NoError(t, err)
	assert.Equal(t, "10-Q", filing.Form)
	require.Len(t, passages, 1)
	assert.Contains(t, passages[0], "Executive officers sold shares")
}

func TestSplitPassages(t *testing.T) {
	text := strings.Repeat("word ", 100)
	passages := SplitPassages(text, 50, 10)
	require.NotEmpty(t, passages)
	for _, p := range passages {
		assert.LessOrEqual(t, len(p), 50)
	}
	assert.Empty(t, SplitPassages("  ", 50, 10))
}

func TestLexicalRanker(t *testing.T) {
	passages := []string{
		"revenue grew strongly in services",
		"the weather was pleasant",
		"risk factors include litigation risk",
	}
	top, err := LexicalRanker{}.Rank(context.Background(), "litigation risk", passages, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, passages[2], top[0])
}
