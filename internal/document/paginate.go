package document

import (
	"strings"
)

// DefaultWordsPerPage is the page size used when none is configured.
const DefaultWordsPerPage = 300

// Page is one paginated chunk of a local document.
type Page struct {
	Number  int
	Section string
	Text    string
}

// Paginate packs the paragraphs of each section into pages of at most
// wordsPerPage words. Pages never span two sections, and a paragraph longer
// than a page is split on word boundaries.
func Paginate(sections []Section, wordsPerPage int) []Page {
	if wordsPerPage <= 0 {
		wordsPerPage = DefaultWordsPerPage
	}

	var pages []Page
	for _, s := range sections {
		var paras []string
		count := 0

		emit := func() {
			if len(paras) == 0 {
				return
			}
			pages = append(pages, Page{
				Number:  len(pages) + 1,
				Section: s.Title,
				Text:    strings.Join(paras, "\n\n"),
			})
			paras = nil
			count = 0
		}

		for _, para := range paragraphs(s.Text) {
			words := strings.Fields(para)
			// Keep a paragraph whole when it fits on a fresh page.
			if count > 0 && count+len(words) > wordsPerPage && len(words) <= wordsPerPage {
				emit()
			}
			for len(words) > 0 {
				if count == wordsPerPage {
					emit()
				}
				n := min(wordsPerPage-count, len(words))
				paras = append(paras, strings.Join(words[:n], " "))
				count += n
				words = words[n:]
			}
		}
		emit()
	}
	return pages
}

// paragraphs splits text on blank lines. Lines inside a paragraph are
// joined with spaces.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				out = append(out, strings.Join(cur, " "))
				cur = nil
			}
			continue
		}
		cur = append(cur, strings.TrimSpace(line))
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}
