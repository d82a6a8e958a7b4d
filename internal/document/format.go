package document

import (
	"os"
	"path/filepath"
	"strings"
)

// Format extracts sections from one kind of file.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) ([]Section, error)
}

var registry []Format

// Register adds a format to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// FormatFor returns the registered format for filename, or nil when the
// file should be read as plain text.
func FormatFor(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return nil
}

// Extract returns the sections of filename, using a registered format or
// plain text fallback.
func Extract(filename string) ([]Section, error) {
	if f := FormatFor(filename); f != nil {
		return f.Extract(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return []Section{{Title: "Document", Text: string(data)}}, nil
}

// FromFile describes a local file as a Document. The path doubles as its ID.
func FromFile(filename string) Document {
	base := filepath.Base(filename)
	return Document{
		ID:    filename,
		Title: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
