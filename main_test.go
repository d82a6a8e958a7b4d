package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metcalfc/pagepal/internal/state"
)

// backend fakes the book service: a catalog, one two-page book and the
// explanation endpoint.
func backend(t *testing.T, explainStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/languages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"language":"es"},{"language":"fr"}]`))
	})
	mux.HandleFunc("/levels/es", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"level":"A2"},{"level":"B1"}]`))
	})
	mux.HandleFunc("/books/es/B1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":4,"gutenberg_id":2000,"title":"Don Quijote","author":"Cervantes","language":"es","language_level":"B1"}]`))
	})
	mux.HandleFunc("/book/2000/chunks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" {
			http.Error(w, `{"detail":"Page out of range or book not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"page":2,"total_pages":2,"chunk":{"chunk_id":2,"text":"En un lugar de la Mancha, de cuyo nombre no quiero acordarme."}}`))
	})
	mux.HandleFunc("/explain", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if explainStatus != http.StatusOK {
			w.WriteHeader(explainStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"explanation": "\"" + req["text"] + "\" at level " + req["language_level"],
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	if srv != nil {
		t.Setenv("PAGEPAL_API_URL", srv.URL)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pagepal dev")
}

func TestLanguagesCommand(t *testing.T) {
	out, err := runCLI(t, backend(t, http.StatusOK), "languages", "-o", "json")
	require.NoError(t, err)

	var langs []string
	require.NoError(t, json.Unmarshal([]byte(out), &langs))
	assert.Equal(t, []string{"es", "fr"}, langs)
}

func TestLevelsCommand(t *testing.T) {
	out, err := runCLI(t, backend(t, http.StatusOK), "levels", "es", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "- A2\n- B1\n", out)
}

func TestBooksCommand(t *testing.T) {
	srv := backend(t, http.StatusOK)

	out, err := runCLI(t, srv, "books", "es", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, "Don Quijote")
	assert.Contains(t, out, "2000")

	out, err = runCLI(t, srv, "books", "es", "C2")
	require.NoError(t, err)
	assert.Contains(t, out, "No books for es at level C2.")

	_, err = runCLI(t, srv, "books", "es", "B1", "-o", "xml")
	assert.Error(t, err)
}

func TestExplainCommand(t *testing.T) {
	out, err := runCLI(t, backend(t, http.StatusOK),
		"explain", "--doc", "2000", "--page", "2", "--level", "A2", "de la Mancha")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 2 of 2")
	assert.Contains(t, out, "...En un lugar [de la Mancha] , de cuyo nombre no quiero acordarme....")
	assert.Contains(t, out, `"de la Mancha" at level A2`)
}

func TestExplainCommandFailures(t *testing.T) {
	_, err := runCLI(t, backend(t, http.StatusInternalServerError),
		"explain", "--doc", "2000", "--page", "2", "Mancha")
	assert.EqualError(t, err, "Failed to get explanation.")

	_, err = runCLI(t, backend(t, http.StatusOK), "explain", "--doc", "2000", "--page", "1", "Mancha")
	assert.ErrorContains(t, err, "Unable to load this page.")

	_, err = runCLI(t, backend(t, http.StatusOK), "explain", "--doc", "2000", "--page", "2", "Quijote")
	assert.Error(t, err)

	_, err = runCLI(t, nil, "explain", "Mancha")
	assert.ErrorContains(t, err, "exactly one of --doc or --file")
}

func TestExplainCommandLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fox.md")
	require.NoError(t, os.WriteFile(path, []byte("# Fables\n\nThe quick brown fox jumps over the lazy dog.\n"), 0o644))

	out, err := runCLI(t, backend(t, http.StatusOK), "explain", "--file", path, "brown", "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "fox, Page 1 of 1")
	assert.Contains(t, out, "[brown fox]")
	assert.Contains(t, out, `"brown fox" at level B1`)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagepal.yaml")

	out, err := runCLI(t, nil, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	out, err = runCLI(t, nil, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "language_level: B1")

	_, err = runCLI(t, nil, "config", "init", path)
	assert.Error(t, err)
}

func TestReadWithoutHistory(t *testing.T) {
	_, err := runCLI(t, nil, "read")
	assert.ErrorIs(t, err, errNothingToResume)
}

func TestExplainCommandSendsMetadata(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"explanation":"a fox"}`))
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "fox.md")
	require.NoError(t, os.WriteFile(path, []byte("The quick brown fox jumps over the lazy dog.\n"), 0o644))

	out, err := runCLI(t, srv, "explain", "--file", path,
		"--title", "Aesop Fables", "--author", "Aesop", "--language", "en", "brown", "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "Aesop Fables by Aesop, Page 1 of 1")
	assert.Equal(t, "Aesop Fables", got["book_title"])
	assert.Equal(t, "Aesop", got["book_author"])
	assert.Equal(t, "en", got["book_language"])

	// Flags that are not given keep what the file provides.
	_, err = runCLI(t, srv, "explain", "--file", path, "--author", "Aesop", "brown", "fox")
	require.NoError(t, err)
	assert.Equal(t, "fox", got["book_title"])
	assert.Equal(t, "Aesop", got["book_author"])
	assert.Empty(t, got["book_language"])
}

func TestExplainCommandPagePastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fox.md")
	require.NoError(t, os.WriteFile(path, []byte("The quick brown fox.\n"), 0o644))

	_, err := runCLI(t, nil, "explain", "--file", path, "--page", "3", "fox")
	assert.ErrorContains(t, err, "page 3 is past the end")
}

func TestStartPageFresh(t *testing.T) {
	store, err := state.OpenStateStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SetPage("book:11", 7))

	a := &app{logger: zap.NewNop()}
	assert.Equal(t, 7, a.startPage(store, "book:11", false))
	assert.Equal(t, 1, a.startPage(store, "book:11", true))
	assert.Equal(t, 1, store.Page("book:11"), "a fresh start forgets the saved page")
}
