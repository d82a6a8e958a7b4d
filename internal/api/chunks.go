package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ChunkText is the chunk object of a chunk page response.
type ChunkText struct {
	ID   int    `json:"chunk_id,omitempty"`
	Text string `json:"text"`
}

// ChunkPage is the response of GET /book/{id}/chunks.
type ChunkPage struct {
	Page       int        `json:"page,omitempty"`
	TotalPages int        `json:"total_pages,omitempty"`
	Chunk      *ChunkText `json:"chunk"`
}

// GetChunk fetches one page of a book, one chunk per page.
func (c *Client) GetChunk(ctx context.Context, documentID string, page int) (*ChunkPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", "1")
	path := "/book/" + url.PathEscape(documentID) + "/chunks?" + q.Encode()

	var out ChunkPage
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch page %d of %s: %w", page, documentID, err)
	}
	return &out, nil
}
