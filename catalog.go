package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metcalfc/pagepal/internal/api"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// output renders command results as a table, YAML or JSON.
type output struct {
	format string
}

func (o *output) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "output", "o", "table", "output format: table, yaml or json")
}

func (o *output) write(w io.Writer, v any, header []string, rows [][]string) error {
	switch o.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(header...).
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		_, err := fmt.Fprintln(w, t.Render())
		return err
	}
	return fmt.Errorf("unknown output format %q", o.format)
}

func (a *app) languagesCmd() *cobra.Command {
	var out output
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages books are available in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(false); err != nil {
				return err
			}
			defer a.close()

			langs, err := a.client().ListLanguages(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list languages: %w", err)
			}
			return out.write(cmd.OutOrStdout(), langs, []string{"Language"}, column(langs))
		},
	}
	out.register(cmd)
	return cmd
}

func (a *app) levelsCmd() *cobra.Command {
	var out output
	cmd := &cobra.Command{
		Use:   "levels <language>",
		Short: "List the reading levels available in a language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(false); err != nil {
				return err
			}
			defer a.close()

			levels, err := a.client().ListLevels(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list levels for %s: %w", args[0], err)
			}
			return out.write(cmd.OutOrStdout(), levels, []string{"Level"}, column(levels))
		},
	}
	out.register(cmd)
	return cmd
}

func (a *app) booksCmd() *cobra.Command {
	var out output
	cmd := &cobra.Command{
		Use:   "books <language> <level>",
		Short: "List the books for a language and level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(false); err != nil {
				return err
			}
			defer a.close()

			books, err := a.client().ListBooks(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to list books: %w", err)
			}
			if len(books) == 0 && out.format == "table" {
				fmt.Fprintf(cmd.OutOrStdout(), "No books for %s at level %s.\n", args[0], args[1])
				return nil
			}
			return out.write(cmd.OutOrStdout(), books, []string{"ID", "Title", "Author", "Level"}, bookRows(books))
		},
	}
	out.register(cmd)
	return cmd
}

func column(values []string) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	return rows
}

func bookRows(books []api.Book) [][]string {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{b.DocumentID(), b.Title, b.Author, b.LanguageLevel})
	}
	return rows
}
