// Package document describes the books a reader opens and extracts readable
// text from local files so they can be paginated into chunks.
package document

// Document identifies a book. Only ID is required; the metadata enriches
// explanation requests.
type Document struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Label returns a human readable name for the document.
func (d Document) Label() string {
	switch {
	case d.Title != "" && d.Author != "":
		return d.Title + " by " + d.Author
	case d.Title != "":
		return d.Title
	default:
		return "Book #" + d.ID
	}
}

// Section is a titled run of text, usually a chapter.
type Section struct {
	Title string
	Text  string
}
