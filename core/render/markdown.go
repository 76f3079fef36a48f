// Package render provides output renderers for the mdmend pipeline.
// This file implements the Markdown renderer, which is a simple passthrough.
package render

import (
	"github.com/gaurav-prasanna/mdmend/core"
)

// MarkdownRenderer writes Markdown as-is, since Markdown is already the
// canonical pipeline format.
type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown as bytes, newline-terminated.
func (r *MarkdownRenderer) Render(markdown string, meta core.PageMetadata) ([]byte, error) {
	if markdown != "" && markdown[len(markdown)-1] != '\n' {
		markdown += "\n"
	}
	return []byte(markdown), nil
}

func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
