// Package document loads Markdown documents for repair.
// A leading front matter block (YAML, TOML or JSON) is split off and kept
// byte for byte; only the body is handed to post-processing. A leading block
// that does not decode, such as a "---" thematic break, stays in the body.
package document

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/adrg/frontmatter"
)

// Document is a Markdown file split into front matter and body.
type Document struct {
	Path        string
	FrontMatter []byte         // raw block including delimiters, nil if absent
	Meta        map[string]any // decoded front matter
	Body        string
	Mode        fs.FileMode
}

// Parse splits src into front matter and body. Without a decodable front
// matter block the whole source is the body.
func Parse(path string, src []byte) *Document {
	doc := &Document{
		Path: path,
		Meta: map[string]any{},
		Body: string(src),
		Mode: 0o644,
	}

	meta := map[string]any{}
	rest, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return doc
	}

	// The body is expected to be a suffix of the source. Anything else means
	// the parser reshaped the input; keep the source whole in that case.
	if len(rest) < len(src) && bytes.HasSuffix(src, rest) {
		doc.FrontMatter = append([]byte(nil), src[:len(src)-len(rest)]...)
		doc.Meta = meta
		doc.Body = string(rest)
	}
	return doc
}

// Load reads and parses the document at path, keeping its file mode.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := Parse(path, src)
	doc.Mode = info.Mode().Perm()
	return doc, nil
}

// Read parses a document from r. name is used in errors and reports only.
func Read(r io.Reader, name string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return Parse(name, src), nil
}

// Bytes reassembles front matter and body.
func (d *Document) Bytes() []byte {
	out := make([]byte, 0, len(d.FrontMatter)+len(d.Body))
	out = append(out, d.FrontMatter...)
	return append(out, d.Body...)
}

// WithBody returns a copy of d carrying body.
func (d *Document) WithBody(body string) *Document {
	c := *d
	c.Body = body
	return &c
}

// Title returns the front matter title, if any.
func (d *Document) Title() string {
	if t, ok := d.Meta["title"].(string); ok {
		return t
	}
	return ""
}
