// Package chunk fetches the page-sized chunks of a document and tracks how
// many pages the document has.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Message is what a reader is shown when a page cannot be loaded.
const Message = "Unable to load this page."

// ErrChunk matches every failure to load a page. Transport failures, bad
// statuses and malformed responses are deliberately not distinguished.
var ErrChunk = errors.New("unable to load this page")

// Error describes a failed page load. It matches ErrChunk with errors.Is.
type Error struct {
	DocumentID string
	Page       int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("unable to load page %d of %s: %v", e.Page, e.DocumentID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrChunk }

// Chunk is one page of a document.
type Chunk struct {
	Page int
	Text string
	// TotalPages is zero when the source did not report it.
	TotalPages int
	// Section is the chapter title when the source knows it.
	Section string
}

// Source loads a single page of a document.
type Source interface {
	Fetch(ctx context.Context, documentID string, page int) (Chunk, error)
}

// NextPage returns the page after current. It does not know about the last
// page; callers check TotalPages.
func NextPage(current int) int {
	return current + 1
}

// PrevPage returns the page before current, never going below 1.
func PrevPage(current int) int {
	return max(1, current-1)
}

// Store loads chunks from a Source and remembers each document's page count
// once the source reports it.
type Store struct {
	source Source
	logger *zap.Logger
	cache  *lru.Cache[string, Chunk]

	mu    sync.RWMutex
	total map[string]int
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithCache keeps up to size recently loaded pages in memory. Without it
// every visit to a page fetches it again.
func WithCache(size int) Option {
	return func(s *Store) error {
		if size <= 0 {
			return nil
		}
		c, err := lru.New[string, Chunk](size)
		if err != nil {
			return fmt.Errorf("failed to create page cache: %w", err)
		}
		s.cache = c
		return nil
	}
}

// NewStore creates a Store over source.
func NewStore(source Source, opts ...Option) (*Store, error) {
	s := &Store{
		source: source,
		logger: zap.NewNop(),
		total:  make(map[string]int),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns page of documentID. Pages before the first, or past a known
// last page, fail without calling the source.
func (s *Store) Get(ctx context.Context, documentID string, page int) (Chunk, error) {
	if page < 1 {
		return Chunk{}, &Error{DocumentID: documentID, Page: page, Err: errors.New("page must be at least 1")}
	}
	if total, ok := s.TotalPages(documentID); ok && page > total {
		return Chunk{}, &Error{DocumentID: documentID, Page: page, Err: fmt.Errorf("document has %d pages", total)}
	}

	key := cacheKey(documentID, page)
	if s.cache != nil {
		if c, ok := s.cache.Get(key); ok {
			s.logger.Debug("page served from cache", zap.String("document", documentID), zap.Int("page", page))
			return s.withTotal(documentID, c), nil
		}
	}

	c, err := s.source.Fetch(ctx, documentID, page)
	if err != nil {
		return Chunk{}, &Error{DocumentID: documentID, Page: page, Err: err}
	}
	if c.Text == "" {
		return Chunk{}, &Error{DocumentID: documentID, Page: page, Err: errors.New("response has no chunk text")}
	}
	c.Page = page

	s.recordTotal(documentID, c.TotalPages)
	if s.cache != nil {
		s.cache.Add(key, c)
	}
	return s.withTotal(documentID, c), nil
}

// TotalPages returns the page count of documentID if a source has reported it.
func (s *Store) TotalPages(documentID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, ok := s.total[documentID]
	return total, ok
}

// recordTotal stores the first page count reported for a document. Later
// reports do not change it.
func (s *Store) recordTotal(documentID string, total int) {
	if total <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	known, ok := s.total[documentID]
	if !ok {
		s.total[documentID] = total
		return
	}
	if known != total {
		s.logger.Warn("ignoring changed page count",
			zap.String("document", documentID),
			zap.Int("known", known),
			zap.Int("reported", total))
	}
}

func (s *Store) withTotal(documentID string, c Chunk) Chunk {
	if total, ok := s.TotalPages(documentID); ok {
		c.TotalPages = total
	}
	return c
}

func cacheKey(documentID string, page int) string {
	return documentID + "#" + strconv.Itoa(page)
}
