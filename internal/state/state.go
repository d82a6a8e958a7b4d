// Package state remembers where a reader left off: the page reached in each
// document and which document was open last.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/metcalfc/pagepal/internal/document"
)

const (
	stateFileName = "reading_positions.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// Position is the page reached in one document.
type Position struct {
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastRead is the document that was open when the reader last quit.
type LastRead struct {
	Document      document.Document `json:"document"`
	LanguageLevel string            `json:"language_level,omitempty"`
	// Path is set for a local file opened with `pagepal open`.
	Path string `json:"path,omitempty"`
}

type stateFile struct {
	Last      *LastRead           `json:"last,omitempty"`
	Positions map[string]Position `json:"positions"`
}

// StateStore manages persistent reading state
type StateStore struct {
	path string
	data stateFile
	mu   sync.RWMutex
}

// NewStateStore creates or loads state from XDG_STATE_HOME/pagepal/
func NewStateStore() (*StateStore, error) {
	return OpenStateStore(getStateDir())
}

// OpenStateStore creates or loads state kept in dir.
func OpenStateStore(dir string) (*StateStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &StateStore{
		path: filepath.Join(dir, stateFileName),
		data: stateFile{Positions: make(map[string]Position)},
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = stateFile{Positions: make(map[string]Position)}
	}
	return store, nil
}

// Path returns the file the state is saved to.
func (s *StateStore) Path() string {
	return s.path
}

// getStateDir returns XDG_STATE_HOME/pagepal or ~/.local/state/pagepal
func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pagepal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "pagepal")
}

// ComputeHash generates content hash for file identity, so a local file
// keeps its position when it is moved or renamed.
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil
}

// Page returns the saved page for key, or 1 if none is saved.
func (s *StateStore) Page(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos, ok := s.data.Positions[key]; ok && pos.Page > 0 {
		return pos.Page
	}
	return 1
}

// SetPage saves the page reached for key.
func (s *StateStore) SetPage(key string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Positions[key] = Position{Page: page, UpdatedAt: time.Now().UTC()}
	return s.save()
}

// Last returns the document that was open last.
func (s *StateStore) Last() (LastRead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Last == nil {
		return LastRead{}, false
	}
	return *s.data.Last, true
}

// SetLast records the document being read.
func (s *StateStore) SetLast(last LastRead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Last = &last
	return s.save()
}

// Clear removes saved position for key
func (s *StateStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.Positions, key)
	return s.save()
}

func (s *StateStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return err
	}
	if s.data.Positions == nil {
		s.data.Positions = make(map[string]Position)
	}
	return nil
}

func (s *StateStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
