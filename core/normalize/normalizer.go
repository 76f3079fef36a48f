// Package normalize implements the Normalizer interface.
// It converts cleaned HTML into Markdown, which serves as the
// canonical intermediate format for all downstream renderers, then
// repairs the converter's output with a post-processing chain.
package normalize

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/gaurav-prasanna/mdmend/core"
)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct {
	post core.Postprocessor
}

// New creates a MarkdownNormalizer. post may be nil, in which case the
// converter's output is returned untouched.
func New(post core.Postprocessor) *MarkdownNormalizer {
	return &MarkdownNormalizer{post: post}
}

// Normalize converts a cleaned HTML fragment into Markdown.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	if n.post != nil {
		markdown = n.post.Process(markdown)
	}
	return markdown, nil
}
