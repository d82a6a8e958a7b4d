package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metcalfc/pagepal/internal/chunk"
	"github.com/metcalfc/pagepal/internal/document"
	"github.com/metcalfc/pagepal/internal/explain"
	"github.com/metcalfc/pagepal/internal/session"
)

func (a *app) explainCmd() *cobra.Command {
	var (
		docID string
		file  string
		page  int
		meta  document.Document
	)

	cmd := &cobra.Command{
		Use:   "explain <phrase>...",
		Short: "Explain a phrase from one page without opening the reader",
		Example: `  pagepal explain --doc 2000 --page 3 "en un lugar de la Mancha"
  pagepal explain --file notes.md --page 1 brown fox`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (docID == "") == (file == "") {
				return errors.New("give exactly one of --doc or --file")
			}
			if err := a.load(false); err != nil {
				return err
			}
			defer a.close()

			client := a.client()
			var source chunk.Source = chunk.NewHTTPSource(client)
			doc := document.Document{ID: docID}
			if file != "" {
				local, err := chunk.OpenLocal(file, a.cfg.WordsPerPage)
				if err != nil {
					return err
				}
				if page > local.Pages() {
					return fmt.Errorf("page %d is past the end of %s (%d pages)", page, file, local.Pages())
				}
				source = local
				doc = local.Document()
			}
			doc = withMetadata(doc, meta)

			sess, err := a.newSession(source, client)
			if err != nil {
				return err
			}
			defer sess.Close()

			if _, err := sessionFor(cmd.Context(), sess, doc, page); err != nil {
				return err
			}
			if _, err := sess.Select(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			sess.Wait()

			st := sess.State()
			printExplanation(cmd.OutOrStdout(), st)
			if st.Selection != nil && st.Selection.Result.Status == explain.StatusFailure {
				return errors.New(st.Selection.Result.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&docID, "doc", "", "library document id")
	cmd.Flags().StringVar(&file, "file", "", "local file to read instead of the library")
	cmd.Flags().IntVar(&page, "page", 1, "page the phrase is on")
	cmd.Flags().StringVar(&meta.Title, "title", "", "book title sent with the request")
	cmd.Flags().StringVar(&meta.Author, "author", "", "book author sent with the request")
	cmd.Flags().StringVar(&meta.Language, "language", "", "language the book is written in")
	return cmd
}

// withMetadata fills doc with the metadata flags that were given.
func withMetadata(doc, meta document.Document) document.Document {
	if meta.Title != "" {
		doc.Title = meta.Title
	}
	if meta.Author != "" {
		doc.Author = meta.Author
	}
	if meta.Language != "" {
		doc.Language = meta.Language
	}
	return doc
}

func printExplanation(w io.Writer, st session.State) {
	sel := st.Selection
	if sel == nil {
		return
	}
	ext := sel.Extraction
	fmt.Fprintf(w, "%s, %s\n\n", st.Document.Label(), st.PageLabel())
	fmt.Fprintf(w, "...%s [%s] %s...\n\n", ext.Context.Before, ext.Text, ext.Context.After)
	if sel.Result.Status == explain.StatusSuccess {
		fmt.Fprintln(w, sel.Result.Text)
	}
}
