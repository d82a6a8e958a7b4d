package api

import (
	"context"
)

// ExplainRequest is the body of POST /explain.
type ExplainRequest struct {
	Text          string `json:"text"`
	LanguageLevel string `json:"language_level"`
	BookTitle     string `json:"book_title"`
	BookAuthor    string `json:"book_author"`
	BookLanguage  string `json:"book_language"`
	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`
}

// ExplainResponse is the body of a successful POST /explain. Explanation may
// be empty.
type ExplainResponse struct {
	Explanation string `json:"explanation"`
}

// Explain asks the backend to explain a span of text.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error) {
	var out ExplainResponse
	if err := c.do(ctx, "POST", "/explain", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
