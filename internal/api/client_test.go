package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "secret")
}

func TestGetChunk(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/book/1342/chunks", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"gutenberg_id":1342,"page":3,"limit":1,"total_pages":5,"total_chunks":5,"chunk":{"chunk_id":9,"text":"It is a truth"}}`))
	})

	page, err := client.GetChunk(context.Background(), "1342", 3)
	require.NoError(t, err)
	require.NotNil(t, page.Chunk)
	assert.Equal(t, "It is a truth", page.Chunk.Text)
	assert.Equal(t, 5, page.TotalPages)
	assert.Equal(t, 3, page.Page)
}

func TestGetChunkStatusError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Page out of range or book not found"}`, http.StatusNotFound)
	})

	_, err := client.GetChunk(context.Background(), "1342", 99)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Body, "out of range")
}

func TestGetChunkMalformedBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.GetChunk(context.Background(), "1", 1)
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/explain", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"text":           "brown fox",
			"language_level": "B1",
			"book_title":     "Fables",
			"book_author":    "Aesop",
			"book_language":  "en",
			"context_before": "The quick",
			"context_after":  "jumps over the lazy dog.",
		}, body)

		_, _ = w.Write([]byte(`{"explanation":"A fox that is brown."}`))
	})

	resp, err := client.Explain(context.Background(), ExplainRequest{
		Text:          "brown fox",
		LanguageLevel: "B1",
		BookTitle:     "Fables",
		BookAuthor:    "Aesop",
		BookLanguage:  "en",
		ContextBefore: "The quick",
		ContextAfter:  "jumps over the lazy dog.",
	})
	require.NoError(t, err)
	assert.Equal(t, "A fox that is brown.", resp.Explanation)
}

func TestExplainServerError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Explain(context.Background(), ExplainRequest{Text: "x"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "unexpected status 500", se.Error())
}

func TestCatalog(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/languages":
			_, _ = w.Write([]byte(`[{"language":"es"},{"language":"pt"}]`))
		case "/levels/es":
			_, _ = w.Write([]byte(`[{"level":"A1"},{"level":"B1"}]`))
		case "/books/es/B1":
			_, _ = w.Write([]byte(`[{"id":4,"gutenberg_id":2000,"title":"Don Quijote","author":"Cervantes","language":"es","language_level":"B1"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	langs, err := client.ListLanguages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"es", "pt"}, langs)

	levels, err := client.ListLevels(ctx, "es")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1"}, levels)

	books, err := client.ListBooks(ctx, "es", "B1")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "2000", books[0].DocumentID())

	books, err = client.ListBooks(ctx, "es", "C2")
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = client.ListLevels(ctx, "xx")
	assert.Error(t, err)
}

func TestBookDocumentIDFallsBackToID(t *testing.T) {
	assert.Equal(t, "7", Book{ID: 7}.DocumentID())
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, "k", WithTimeout(20*time.Millisecond))
	_, err := client.GetChunk(context.Background(), "1", 1)
	assert.Error(t, err)
}

func TestClientHonoursContext(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetChunk(ctx, "1", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
