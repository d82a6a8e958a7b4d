package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// Book is a catalog entry.
type Book struct {
	ID            int    `json:"id" yaml:"id"`
	GutenbergID   int    `json:"gutenberg_id,omitempty" yaml:"gutenberg_id,omitempty"`
	Title         string `json:"title" yaml:"title"`
	Author        string `json:"author" yaml:"author"`
	Language      string `json:"language" yaml:"language"`
	LanguageLevel string `json:"language_level" yaml:"language_level"`
}

// DocumentID returns the identifier the chunk endpoint expects.
func (b Book) DocumentID() string {
	if b.GutenbergID != 0 {
		return strconv.Itoa(b.GutenbergID)
	}
	return strconv.Itoa(b.ID)
}

type languageEntry struct {
	Language string `json:"language"`
}

type levelEntry struct {
	Level string `json:"level"`
}

// ListLanguages returns the languages the catalog has books in.
func (c *Client) ListLanguages(ctx context.Context) ([]string, error) {
	var entries []languageEntry
	if err := c.do(ctx, "GET", "/languages", nil, &entries); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Language)
	}
	return out, nil
}

// ListLevels returns the CEFR levels available for a language.
func (c *Client) ListLevels(ctx context.Context, language string) ([]string, error) {
	var entries []levelEntry
	if err := c.do(ctx, "GET", "/levels/"+url.PathEscape(language), nil, &entries); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Level)
	}
	return out, nil
}

// ListBooks returns the books for a language and level. The backend answers
// 404 when nothing matches; that is an empty list, not an error.
func (c *Client) ListBooks(ctx context.Context, language, level string) ([]Book, error) {
	var books []Book
	path := "/books/" + url.PathEscape(language) + "/" + url.PathEscape(level)
	if err := c.do(ctx, "GET", path, nil, &books); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return []Book{}, nil
		}
		return nil, err
	}
	return books, nil
}
