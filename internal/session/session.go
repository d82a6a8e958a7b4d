// Package session is the reading state machine: it loads the page being
// read, turns text selections into explanation requests and decides which
// asynchronous results are still current.
//
// Page loads and explanation requests run in the background. Each resource
// carries a generation number; a completion whose generation is no longer
// current is dropped, and starting a newer operation cancels the older one.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/metcalfc/pagepal/internal/chunk"
	"github.com/metcalfc/pagepal/internal/document"
	"github.com/metcalfc/pagepal/internal/explain"
	"github.com/metcalfc/pagepal/internal/selection"
)

var (
	ErrNoDocument  = errors.New("no document to read")
	ErrNotStarted  = errors.New("session has not been started")
	ErrNotReading  = errors.New("no page is displayed")
	ErrNoSelection = errors.New("nothing is selected")
	ErrNoNextPage  = errors.New("already on the last page")
	ErrNoPrevPage  = errors.New("already on the first page")
)

// Direction is a page change requested by the reader.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Chunks loads pages. *chunk.Store satisfies it.
type Chunks interface {
	Get(ctx context.Context, documentID string, page int) (chunk.Chunk, error)
	TotalPages(documentID string) (int, bool)
}

// Explainer turns a request into a finished result. *explain.Requester
// satisfies it.
type Explainer interface {
	Explain(ctx context.Context, req explain.Request) explain.Result
}

// Config holds the per-reader settings of a session.
type Config struct {
	LanguageLevel string
	Logger        *zap.Logger
}

// Session is one reader's view of one document.
type Session struct {
	chunks    Chunks
	explainer Explainer
	level     string
	logger    *zap.Logger

	mu         sync.Mutex
	state      State
	pageGen    uint64
	selGen     uint64
	cancelPage context.CancelFunc
	cancelSel  context.CancelFunc
	subs       []chan State

	wg sync.WaitGroup
}

// New creates an idle session.
func New(chunks Chunks, explainer Explainer, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		chunks:    chunks,
		explainer: explainer,
		level:     cfg.LanguageLevel,
		logger:    logger,
	}
}

// Start opens doc on its first page.
func (s *Session) Start(ctx context.Context, doc document.Document) error {
	return s.StartAt(ctx, doc, 1)
}

// StartAt opens doc on page. A page below 1, or past a page count already
// known for doc, starts on the first page.
func (s *Session) StartAt(ctx context.Context, doc document.Document, page int) error {
	if doc.ID == "" {
		return ErrNoDocument
	}
	if total, ok := s.chunks.TotalPages(doc.ID); page < 1 || (ok && page > total) {
		page = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearSelectionLocked()
	s.state = State{Document: doc, Page: page}
	if total, ok := s.chunks.TotalPages(doc.ID); ok {
		s.state.TotalPages = total
	}
	s.logger.Info("session started", zap.String("document", doc.ID), zap.Int("page", page))
	s.loadLocked(ctx, page)
	return nil
}

// ChangePage moves one page in dir. Moving past the first page, or past the
// last page once it is known, is refused.
func (s *Session) ChangePage(ctx context.Context, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase == PhaseIdle {
		return ErrNotStarted
	}

	var page int
	switch dir {
	case Forward:
		if !s.state.CanNext() {
			return ErrNoNextPage
		}
		page = chunk.NextPage(s.state.Page)
	case Backward:
		if !s.state.CanPrev() {
			return ErrNoPrevPage
		}
		page = chunk.PrevPage(s.state.Page)
	default:
		return fmt.Errorf("unknown direction %d", dir)
	}

	s.clearSelectionLocked()
	s.loadLocked(ctx, page)
	return nil
}

// Next moves forward one page.
func (s *Session) Next(ctx context.Context) error { return s.ChangePage(ctx, Forward) }

// Prev moves back one page.
func (s *Session) Prev(ctx context.Context) error { return s.ChangePage(ctx, Backward) }

// Select handles text the reader highlighted on the current page. A valid
// selection replaces any previous one and its explanation is requested in
// the background. An invalid selection leaves the session unchanged and
// the reason is returned.
func (s *Session) Select(ctx context.Context, raw string) (selection.Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhaseReading {
		return selection.Extraction{}, ErrNotReading
	}

	ext, err := selection.Extract(s.state.Chunk.Text, raw)
	if err != nil {
		s.logger.Info("selection rejected",
			zap.String("document", s.state.Document.ID),
			zap.Int("page", s.state.Page),
			zap.Int("words", selection.Words(raw)),
			zap.Error(err))
		return selection.Extraction{}, err
	}

	s.clearSelectionLocked()
	s.state.Selection = &Selecting{Extraction: ext, Result: explain.Pending()}
	s.publishLocked()

	gen := s.selGen
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancelSel = cancel
	req := explain.Request{
		Selection:     ext,
		Document:      s.state.Document,
		LanguageLevel: s.level,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		result := s.explainer.Explain(reqCtx, req)
		s.finishExplanation(gen, result)
	}()
	return ext, nil
}

// Dismiss clears the current selection and abandons its explanation.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Selection == nil {
		return ErrNoSelection
	}
	s.clearSelectionLocked()
	s.publishLocked()
	return nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Only the newest snapshot is kept for a slow reader. The returned func
// unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, c := range s.subs {
				if c == ch {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}

// Wait blocks until every background load and request has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close abandons in-flight work and closes all subscriptions. The session
// must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.pageGen++
	s.selGen++
	if s.cancelPage != nil {
		s.cancelPage()
	}
	if s.cancelSel != nil {
		s.cancelSel()
	}
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	s.wg.Wait()
	for _, ch := range subs {
		close(ch)
	}
}

// loadLocked enters PhaseLoading for page and fetches it in the background,
// superseding any earlier load.
func (s *Session) loadLocked(ctx context.Context, page int) {
	if s.cancelPage != nil {
		s.cancelPage()
	}
	s.pageGen++
	gen := s.pageGen
	docID := s.state.Document.ID

	s.state.Phase = PhaseLoading
	s.state.Page = page
	s.state.Chunk = chunk.Chunk{}
	s.state.Message = ""
	s.publishLocked()

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelPage = cancel

	s.logger.Debug("loading page", zap.String("document", docID), zap.Int("page", page), zap.Uint64("generation", gen))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		c, err := s.chunks.Get(loadCtx, docID, page)
		s.finishLoad(gen, page, c, err)
	}()
}

func (s *Session) finishLoad(gen uint64, page int, c chunk.Chunk, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.pageGen {
		s.logger.Debug("discarding stale page", zap.Int("page", page), zap.Uint64("generation", gen))
		return
	}

	if err != nil {
		s.logger.Warn("page failed to load",
			zap.String("document", s.state.Document.ID),
			zap.Int("page", page),
			zap.Error(err))
		s.state.Phase = PhaseChunkError
		s.state.Message = chunk.Message
	} else {
		s.state.Phase = PhaseReading
		s.state.Chunk = c
		if c.TotalPages > 0 {
			s.state.TotalPages = c.TotalPages
		}
	}
	s.publishLocked()
}

func (s *Session) finishExplanation(gen uint64, result explain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.selGen || s.state.Selection == nil {
		s.logger.Debug("discarding stale explanation", zap.Uint64("generation", gen), zap.Stringer("status", result.Status))
		return
	}
	s.state.Selection.Result = result
	s.logger.Debug("explanation finished", zap.Stringer("status", result.Status))
	s.publishLocked()
}

// clearSelectionLocked drops the current selection and makes any in-flight
// explanation stale.
func (s *Session) clearSelectionLocked() {
	s.selGen++
	if s.cancelSel != nil {
		s.cancelSel()
		s.cancelSel = nil
	}
	s.state.Selection = nil
}

func (s *Session) publishLocked() {
	snap := s.state.clone()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
