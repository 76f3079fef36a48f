// Package postprocess runs ordered Markdown repair passes over converted or
// hand-written Markdown. Each pass is a pure string transform; a Chain applies
// the configured passes in sequence.
package postprocess

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/mdmend/core/boldspace"
)

var (
	ErrUnknownPass   = errors.New("unknown post-processing pass")
	ErrDuplicatePass = errors.New("duplicate post-processing pass")
)

// Pass is a named Markdown -> Markdown transform.
type Pass struct {
	Name  string
	Apply func(markdown string) string
}

// Pass names.
const (
	LineEndings = "line-endings"
	FenceBold   = "fence-bold"
	BoldSpacing = "bold-spacing"
	Whitespace  = "whitespace"
)

var registry = map[string]Pass{
	LineEndings: {Name: LineEndings, Apply: NormalizeLineEndings},
	FenceBold:   {Name: FenceBold, Apply: StripFenceBold},
	BoldSpacing: {Name: BoldSpacing, Apply: boldspace.Normalize},
	Whitespace:  {Name: Whitespace, Apply: NormalizeWhitespace},
}

// DefaultPasses is the pass order used for freshly converted Markdown.
func DefaultPasses() []string {
	return []string{LineEndings, FenceBold, BoldSpacing, Whitespace}
}

// Known reports whether name is a registered pass.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Chain applies passes in order.
type Chain struct {
	passes []Pass
	log    *zap.Logger
}

// New builds a Chain from pass names. An empty list yields a chain that
// returns its input unchanged.
func New(names []string, log *zap.Logger) (*Chain, error) {
	if log == nil {
		log = zap.NewNop()
	}

	seen := make(map[string]bool, len(names))
	passes := make([]Pass, 0, len(names))

	for _, name := range names {
		p, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPass, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePass, name)
		}
		seen[name] = true
		passes = append(passes, p)
	}

	return &Chain{passes: passes, log: log}, nil
}

// Names returns the pass names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.passes))
	for i, p := range c.passes {
		names[i] = p.Name
	}
	return names
}

// Process runs every pass over markdown.
func (c *Chain) Process(markdown string) string {
	for _, p := range c.passes {
		out := p.Apply(markdown)
		if out != markdown {
			c.log.Debug("Pass rewrote markdown",
				zap.String("pass", p.Name),
				zap.Int("bytes_before", len(markdown)),
				zap.Int("bytes_after", len(out)),
			)
		}
		markdown = out
	}
	return markdown
}
