// Package audit measures what a repair pass changes in rendered output.
// A bold span with spaces inside its markers is plain text to a CommonMark
// renderer; counting strong-emphasis nodes before and after a fix shows how
// many spans the fix brought back.
package audit

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// parser is stateless after construction and shared across goroutines.
var parser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// CountStrong returns the number of strong-emphasis nodes a CommonMark
// (GFM) parser finds in markdown.
func CountStrong(markdown string) int {
	src := []byte(markdown)
	doc := parser.Parse(text.NewReader(src))

	count := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if em, ok := n.(*ast.Emphasis); ok && em.Level == 2 {
			count++
		}
		return ast.WalkContinue, nil
	})
	return count
}

// Report describes the effect of repairing one document.
type Report struct {
	Path         string
	Title        string
	Changed      bool
	RemovedRunes int
	StrongBefore int
	StrongAfter  int
}

// Inspect compares a document body before and after repair.
func Inspect(path, title, before, after string) Report {
	return Report{
		Path:         path,
		Title:        title,
		Changed:      before != after,
		RemovedRunes: utf8.RuneCountInString(before) - utf8.RuneCountInString(after),
		StrongBefore: CountStrong(before),
		StrongAfter:  CountStrong(after),
	}
}

// Recovered is the number of bold spans that render only after the fix.
func (r Report) Recovered() int {
	return r.StrongAfter - r.StrongBefore
}

var header = []string{"PATH", "TITLE", "CHANGED", "REMOVED", "BOLD BEFORE", "BOLD AFTER"}

// WriteTable writes reports as an aligned table. Widths are measured in
// terminal cells so titles with wide runes stay aligned.
func WriteTable(w io.Writer, reports []Report) error {
	rows := make([][]string, 0, len(reports)+1)
	rows = append(rows, header)
	for _, r := range reports {
		changed := "no"
		if r.Changed {
			changed = "yes"
		}
		rows = append(rows, []string{
			r.Path,
			r.Title,
			changed,
			fmt.Sprint(r.RemovedRunes),
			fmt.Sprint(r.StrongBefore),
			fmt.Sprint(r.StrongAfter),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}
