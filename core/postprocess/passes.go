package postprocess

import (
	"regexp"
	"strings"
)

var (
	crlfOrCR     = regexp.MustCompile(`\r\n?`)
	asteriskLine = regexp.MustCompile(`^[ \t]*\*\*+[ \t]*$`)
)

// NormalizeLineEndings converts \r\n and \r to \n.
func NormalizeLineEndings(markdown string) string {
	return crlfOrCR.ReplaceAllString(markdown, "\n")
}

// StripFenceBold repairs bold markers that leaked across a code fence. HTML
// converters emit them when a <strong> is left open across a <pre>:
//
//   - "**" glued to the front of a fence is removed ("**```rust" becomes
//     "```rust"); indentation is kept.
//   - A line holding only asterisks directly after a closing fence is dropped.
func StripFenceBold(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))

	var open *fence
	justClosed := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "**```") || strings.HasPrefix(trimmed, "**~~~") {
			indent := line[:len(line)-len(trimmed)]
			trimmed = trimmed[2:]
			line = indent + trimmed
		}

		if justClosed && asteriskLine.MatchString(line) {
			justClosed = false
			continue
		}
		justClosed = false

		if f, ok := parseFence(trimmed); ok {
			switch {
			case open == nil:
				open = &f
			case f.char == open.char && f.count >= open.count && strings.TrimSpace(trimmed[f.count:]) == "":
				open = nil
				justClosed = true
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// fence is an open fenced code block.
type fence struct {
	char  byte
	count int
}

// parseFence reports the fence character and length when line (with leading
// indentation removed) opens or closes a fenced code block.
func parseFence(trimmed string) (fence, bool) {
	if len(trimmed) < 3 || (trimmed[0] != '`' && trimmed[0] != '~') {
		return fence{}, false
	}
	ch := trimmed[0]
	n := 0
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return fence{}, false
	}
	return fence{char: ch, count: n}, true
}

// NormalizeWhitespace tidies blank lines outside fenced code blocks: trailing
// whitespace is removed, runs of blank lines collapse to one, and blank lines
// at the start and end of the document are dropped. Lines inside a fenced
// block are copied verbatim.
func NormalizeWhitespace(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))

	var open *fence
	blank := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")

		if f, ok := parseFence(trimmed); ok {
			switch {
			case open == nil:
				open = &f
			case f.char == open.char && f.count >= open.count && strings.TrimSpace(trimmed[f.count:]) == "":
				open = nil
			}
			out = append(out, line)
			blank = false
			continue
		}

		if open != nil {
			out = append(out, line)
			blank = false
			continue
		}

		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}

	start, end := 0, len(out)
	for start < end && out[start] == "" {
		start++
	}
	for end > start && out[end-1] == "" {
		end--
	}

	return strings.Join(out[start:end], "\n")
}
