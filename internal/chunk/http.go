package chunk

import (
	"context"
	"errors"

	"github.com/metcalfc/pagepal/internal/api"
)

// Fetcher is the part of the API client HTTPSource needs.
type Fetcher interface {
	GetChunk(ctx context.Context, documentID string, page int) (*api.ChunkPage, error)
}

// HTTPSource loads chunks from the backend, one chunk per page.
type HTTPSource struct {
	client Fetcher
}

// NewHTTPSource creates a Source backed by the chunk endpoint.
func NewHTTPSource(client Fetcher) *HTTPSource {
	return &HTTPSource{client: client}
}

func (h *HTTPSource) Fetch(ctx context.Context, documentID string, page int) (Chunk, error) {
	resp, err := h.client.GetChunk(ctx, documentID, page)
	if err != nil {
		return Chunk{}, err
	}
	if resp.Chunk == nil || resp.Chunk.Text == "" {
		return Chunk{}, errors.New("no text found in chunk")
	}
	return Chunk{
		Page:       page,
		Text:       resp.Chunk.Text,
		TotalPages: resp.TotalPages,
	}, nil
}
