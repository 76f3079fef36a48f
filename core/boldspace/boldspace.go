// Package boldspace repairs whitespace around Markdown bold (**...**) markers.
//
// Converted and model-generated Markdown often carries spurious spaces inside
// the markers (`** text **`) or between a bold span and the punctuation that
// follows it (`**text** :`). CommonMark does not render either form as bold.
// Normalize fixes both in two ordered passes:
//
//  1. StripInternalSpace trims whitespace just inside each bold span.
//  2. CollapsePunctuationSpace joins a bold span to a trailing punctuation mark.
//
// The two passes repeat until the output is stable, so Normalize is
// idempotent.
//
// Only whitespace is ever removed; asterisks and all other characters keep
// their count and order. All functions are pure and safe for concurrent use.
package boldspace

import (
	"regexp"
	"strings"
)

// ws matches one Unicode White_Space character, the same set unicode.IsSpace
// (and so strings.TrimSpace) accepts.
const ws = `[\t\n\v\f\r \x{85}\p{Z}]`

var (
	// internalSpace matches the shortest **...** span. The interior cannot
	// cross a newline; the whitespace runs next to the markers can.
	internalSpace = regexp.MustCompile(`\*\*` + ws + `*(.+?)` + ws + `*\*\*`)

	// punctuationSpace matches an asterisk-free bold span followed by
	// whitespace and a single punctuation mark.
	punctuationSpace = regexp.MustCompile(`(\*\*[^*]+\*\*)` + ws + `+([,:;.!?])`)

	// span matches a complete, asterisk-free bold span.
	span = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// Normalize runs both repair passes over markdown until the text stops
// changing. The passes are order dependent: punctuation collapsing relies on
// interior spacing already being trimmed. Gluing a span to punctuation can
// form a new span with a following ** (`**a** :** .` becomes `**a**:** .`),
// which the next round repairs. Every round that changes the text removes
// whitespace, so the loop ends; most text settles after one round.
func Normalize(markdown string) string {
	for {
		next := CollapsePunctuationSpace(StripInternalSpace(markdown))
		if next == markdown {
			return next
		}
		markdown = next
	}
}

// Changed reports whether Normalize would rewrite markdown.
func Changed(markdown string) bool {
	return Normalize(markdown) != markdown
}

// StripInternalSpace removes whitespace directly after an opening ** and
// directly before the matching closing **. Spans are matched left to right,
// each closing at the nearest following **, and never overlap. Whitespace
// between words inside a span is kept. A span holding only whitespace
// collapses to "****".
func StripInternalSpace(markdown string) string {
	matches := internalSpace.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return markdown
	}

	var b strings.Builder
	b.Grow(len(markdown))

	last := 0
	for _, m := range matches {
		b.WriteString(markdown[last:m[0]])
		b.WriteString("**")
		b.WriteString(strings.TrimSpace(markdown[m[2]:m[3]]))
		b.WriteString("**")
		last = m[1]
	}
	b.WriteString(markdown[last:])

	return b.String()
}

// CollapsePunctuationSpace deletes the whitespace between a bold span and a
// directly following , : ; . ! or ?. Text after the punctuation mark is left
// alone, as is the interior of the span.
func CollapsePunctuationSpace(markdown string) string {
	return punctuationSpace.ReplaceAllString(markdown, "$1$2")
}

// Span is a well-formed bold span located in a text.
type Span struct {
	Start int    // byte offset of the opening **
	End   int    // byte offset just past the closing **
	Text  string // interior between the markers
}

// Spans returns the asterisk-free bold spans of markdown in order. It is
// meant for text that already went through Normalize.
func Spans(markdown string) []Span {
	matches := span.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return nil
	}

	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Text:  markdown[m[2]:m[3]],
		})
	}
	return spans
}
