package session

import (
	"fmt"

	"github.com/metcalfc/pagepal/internal/chunk"
	"github.com/metcalfc/pagepal/internal/document"
	"github.com/metcalfc/pagepal/internal/explain"
	"github.com/metcalfc/pagepal/internal/selection"
)

// Phase is the page-level state of a session.
type Phase int

const (
	// PhaseIdle is a session that has not been started.
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReading
	PhaseChunkError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReading:
		return "reading"
	case PhaseChunkError:
		return "chunk error"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Selecting is a selection on the current page together with its
// explanation.
type Selecting struct {
	Extraction selection.Extraction
	Result     explain.Result
}

// State is a snapshot of a session. Snapshots are values; changing one does
// not affect the session.
type State struct {
	Document document.Document
	Phase    Phase
	Page     int
	// TotalPages is zero until the document's page count is known.
	TotalPages int
	// Chunk is the displayed page. It is only meaningful in PhaseReading.
	Chunk chunk.Chunk
	// Message is the user-facing error in PhaseChunkError.
	Message string
	// Selection is nil when nothing is selected.
	Selection *Selecting
}

// CanNext reports whether moving forward is allowed.
func (s State) CanNext() bool {
	if s.Phase == PhaseIdle {
		return false
	}
	return s.TotalPages == 0 || s.Page < s.TotalPages
}

// CanPrev reports whether moving back is allowed.
func (s State) CanPrev() bool {
	return s.Phase != PhaseIdle && s.Page > 1
}

// PageLabel renders the page position, e.g. "Page 3 of 5" or "Page 3".
func (s State) PageLabel() string {
	if s.TotalPages > 0 {
		return fmt.Sprintf("Page %d of %d", s.Page, s.TotalPages)
	}
	return fmt.Sprintf("Page %d", s.Page)
}

func (s State) clone() State {
	if s.Selection != nil {
		sel := *s.Selection
		s.Selection = &sel
	}
	return s
}
