package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "apple earnings", body["q"])

		_, _ = w.Write([]byte(`{"organic":[
			{"title":"a","link":"https://a","snippet":"sa"},
			{"title":"b","link":"https://b","snippet":"sb"},
			{"title":"c","link":"https://c","snippet":"sc"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL)
	results, err := c.Search(context.Background(), "apple earnings", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "a", Link: "https://a", Snippet: "sa"}, results[0])
}

func TestNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		_, _ = w.Write([]byte(`{"news":[{"title":"n","link":"https://n","snippet":"s","source":"Reuters"}]}`))
	}))
	defer srv.Close()

	results, err := NewClient("key", srv.URL).News(context.Background(), "AAPL", 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Reuters", results[0].Source)
}

func TestMissingKey(t *testing.T) {
	_, err := NewClient("", "").Search(context.Background(), "q", 4)
	assert.True(t, errors.Is(err, errors.ErrMissingCredentials))
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient("bad", srv.URL).Search(context.Background(), "q", 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
