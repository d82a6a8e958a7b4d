package document

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// MarkdownFormat implements Format for Markdown files. Each header starts a
// new section.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Extract splits a Markdown file into sections at its headers. Text before
// the first header, or a file without headers, becomes a "Document" section.
func (f *MarkdownFormat) Extract(filename string) ([]Section, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var sections []Section
	current := Section{Title: "Document"}
	var body strings.Builder

	flush := func() {
		current.Text = strings.TrimSpace(body.String())
		if current.Text != "" {
			sections = append(sections, current)
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if match := headerRegex.FindStringSubmatch(line); match != nil {
			flush()
			title := strings.TrimSpace(match[2])
			current = Section{Title: title}
			body.WriteString(title)
			body.WriteString("\n\n")
			continue
		}

		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections, scanner.Err()
}
