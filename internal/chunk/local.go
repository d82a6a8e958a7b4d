package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/metcalfc/pagepal/internal/document"
)

// LocalSource serves the pages of a file on disk. It always knows the page
// count.
type LocalSource struct {
	doc   document.Document
	pages []document.Page
}

// OpenLocal extracts and paginates filename.
func OpenLocal(filename string, wordsPerPage int) (*LocalSource, error) {
	sections, err := document.Extract(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	pages := document.Paginate(sections, wordsPerPage)
	if len(pages) == 0 {
		return nil, errors.New("no text to read")
	}
	return &LocalSource{doc: document.FromFile(filename), pages: pages}, nil
}

// Document returns the document this source serves.
func (l *LocalSource) Document() document.Document {
	return l.doc
}

// Pages returns the number of pages.
func (l *LocalSource) Pages() int {
	return len(l.pages)
}

func (l *LocalSource) Fetch(ctx context.Context, documentID string, page int) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if documentID != l.doc.ID {
		return Chunk{}, fmt.Errorf("unknown document %q", documentID)
	}
	if page < 1 || page > len(l.pages) {
		return Chunk{}, fmt.Errorf("page %d out of range", page)
	}
	p := l.pages[page-1]
	return Chunk{
		Page:       p.Number,
		Text:       p.Text,
		TotalPages: len(l.pages),
		Section:    p.Section,
	}, nil
}
