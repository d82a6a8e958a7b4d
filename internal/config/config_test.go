package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "${PAGEPAL_API_KEY}", cfg.APIKey)
	assert.EqualValues(t, 3, cfg.ExplainRate)
	assert.Zero(t, cfg.BreakerFailures, "breaker is off unless configured")
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("TEST_PAGEPAL_KEY", "secret123")

	tests := []struct {
		in, want string
	}{
		{"${TEST_PAGEPAL_KEY}", "secret123"},
		{"prefix-${TEST_PAGEPAL_KEY}", "prefix-secret123"},
		{"${DEFINITELY_NOT_SET_12345}", ""},
		{"literal-value", "literal-value"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveEnvVars(tt.in), "ResolveEnvVars(%q)", tt.in)
	}
}

func TestNewManagerLoadsFile(t *testing.T) {
	t.Setenv("BOOKS_KEY", "from-env")
	path := writeConfig(t, `
api_url: https://books.example.com
api_key: ${BOOKS_KEY}
language_level: A2
timeout: 5s
words_per_page: 120
`)

	mgr, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, mgr.File())

	cfg := mgr.Get()
	assert.Equal(t, "https://books.example.com", cfg.APIURL)
	assert.Equal(t, "from-env", cfg.ResolvedAPIKey())
	assert.Equal(t, "A2", cfg.LanguageLevel)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 120, cfg.WordsPerPage)
	// Unset keys keep their defaults.
	assert.Equal(t, 32, cfg.PageCache)
}

func TestNewManagerEnvOverrides(t *testing.T) {
	path := writeConfig(t, "language_level: A2\n")
	t.Setenv("PAGEPAL_LANGUAGE_LEVEL", "C1")
	t.Setenv("PAGEPAL_PAGE_CACHE", "0")

	mgr, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "C1", mgr.Get().LanguageLevel)
	assert.Equal(t, 0, mgr.Get().PageCache)
}

func TestNewManagerWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	mgr, err := NewManager("")
	require.NoError(t, err)
	assert.Empty(t, mgr.File())
	assert.Equal(t, DefaultConfig().APIURL, mgr.Get().APIURL)
}

func TestNewManagerRejectsInvalid(t *testing.T) {
	tests := []string{
		"timeout: -1s\n",
		"words_per_page: 0\n",
		"page_cache: -4\n",
		"explain_rate: 2\nexplain_burst: 0\n",
	}
	for _, content := range tests {
		_, err := NewManager(writeConfig(t, content))
		assert.Error(t, err, content)
	}
}

func TestNewManagerMalformedFile(t *testing.T) {
	_, err := NewManager(writeConfig(t, "api_url: [unterminated\n"))
	assert.Error(t, err)
}

func TestManagerSet(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "language_level: A2\n"))
	require.NoError(t, err)

	require.NoError(t, mgr.Set("language_level", "B2"))
	assert.Equal(t, "B2", mgr.Get().LanguageLevel)

	assert.Error(t, mgr.Set("words_per_page", -1))
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# PagePal configuration")
	assert.Contains(t, string(data), "PAGEPAL_API_KEY")

	mgr, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, *DefaultConfig(), *mgr.Get())

	assert.Error(t, WriteDefault(path), "existing files are not overwritten")
}
