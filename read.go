package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metcalfc/pagepal/internal/api"
	"github.com/metcalfc/pagepal/internal/chunk"
	"github.com/metcalfc/pagepal/internal/document"
	"github.com/metcalfc/pagepal/internal/session"
	"github.com/metcalfc/pagepal/internal/state"
)

var errNothingToResume = errors.New("no document given and nothing read yet; find one with `pagepal books <language> <level>`")

type readOptions struct {
	fresh    bool
	title    string
	author   string
	language string
}

func (o *readOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.fresh, "fresh", false, "start on the first page instead of the saved one")
}

func (a *app) readCmd() *cobra.Command {
	var opts readOptions

	cmd := &cobra.Command{
		Use:   "read [document-id]",
		Short: "Read a book from the library",
		Long: `Read a book from the library by its id. Without an id the last book
or file you read is reopened on the page you left it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(true); err != nil {
				return err
			}
			defer a.close()

			store, err := state.NewStateStore()
			if err != nil {
				return fmt.Errorf("failed to open reading state: %w", err)
			}

			if len(args) == 0 {
				last, ok := store.Last()
				if !ok {
					return errNothingToResume
				}
				if a.level == "" && last.LanguageLevel != "" {
					a.cfg.LanguageLevel = last.LanguageLevel
				}
				if last.Path != "" {
					return a.readFile(cmd.Context(), store, last.Path, opts.fresh)
				}
				return a.readBook(cmd.Context(), store, last.Document, opts.fresh)
			}

			doc := document.Document{
				ID:       args[0],
				Title:    opts.title,
				Author:   opts.author,
				Language: opts.language,
			}
			return a.readBook(cmd.Context(), store, doc, opts.fresh)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.title, "title", "", "book title sent with explanation requests")
	cmd.Flags().StringVar(&opts.author, "author", "", "book author sent with explanation requests")
	cmd.Flags().StringVar(&opts.language, "language", "", "language the book is written in")
	return cmd
}

func (a *app) openCmd() *cobra.Command {
	var opts readOptions

	cmd := &cobra.Command{
		Use:   "open <file>",
		Short: "Read a local text, Markdown or EPUB file",
		Long: fmt.Sprintf(`Read a local file, paginated into pages of words_per_page words.
Explanations still come from the explanation service.

Supported formats: %v`, document.SupportedFormats()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(true); err != nil {
				return err
			}
			defer a.close()

			store, err := state.NewStateStore()
			if err != nil {
				return fmt.Errorf("failed to open reading state: %w", err)
			}
			return a.readFile(cmd.Context(), store, args[0], opts.fresh)
		},
	}
	opts.register(cmd)
	return cmd
}

func (a *app) readBook(ctx context.Context, store *state.StateStore, doc document.Document, fresh bool) error {
	client := a.client()
	key := "book:" + doc.ID
	last := state.LastRead{Document: doc, LanguageLevel: a.cfg.LanguageLevel}
	return a.runReader(ctx, store, chunk.NewHTTPSource(client), client, doc, key, last, fresh)
}

func (a *app) readFile(ctx context.Context, store *state.StateStore, path string, fresh bool) error {
	src, err := chunk.OpenLocal(path, a.cfg.WordsPerPage)
	if err != nil {
		return err
	}
	hash, err := state.ComputeHash(path)
	if err != nil {
		return fmt.Errorf("failed to identify %s: %w", path, err)
	}
	doc := src.Document()
	last := state.LastRead{Document: doc, LanguageLevel: a.cfg.LanguageLevel, Path: path}
	// Page counts depend on words_per_page, so the key carries it.
	key := fmt.Sprintf("file:%s:%d", hash, a.cfg.WordsPerPage)
	return a.runReader(ctx, store, src, a.client(), doc, key, last, fresh)
}

// runReader shows doc in the terminal until the reader quits.
func (a *app) runReader(ctx context.Context, store *state.StateStore, source chunk.Source, client *api.Client, doc document.Document, key string, last state.LastRead, fresh bool) error {
	sess, err := a.newSession(source, client)
	if err != nil {
		return err
	}
	defer sess.Close()

	page := a.startPage(store, key, fresh)
	if err := store.SetLast(last); err != nil {
		a.logger.Warn("failed to save last document", zap.Error(err))
	}

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	if err := sess.StartAt(ctx, doc, page); err != nil {
		return err
	}

	m := newModel(ctx, sess, updates, store, key, a.logger.Named("tui"))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// sessionFor starts a session on doc and waits for the page to load. It is
// used by the commands that do not open the reader.
func sessionFor(ctx context.Context, sess *session.Session, doc document.Document, page int) (session.State, error) {
	if err := sess.StartAt(ctx, doc, page); err != nil {
		return session.State{}, err
	}
	sess.Wait()
	st := sess.State()
	if st.Phase != session.PhaseReading {
		return st, fmt.Errorf("%s (%s, page %d)", st.Message, doc.Label(), st.Page)
	}
	return st, nil
}

// startPage returns the page to open key on. A fresh start forgets the
// saved position.
func (a *app) startPage(store *state.StateStore, key string, fresh bool) int {
	if !fresh {
		return store.Page(key)
	}
	if err := store.Clear(key); err != nil {
		a.logger.Warn("failed to clear saved position", zap.String("key", key), zap.Error(err))
	}
	return 1
}
