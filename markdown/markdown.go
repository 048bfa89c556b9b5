// Package markdown provides the default Converter used by the "md"
// filter and the "include md"/"include raw md" forms (spec.md ยง1, ยง4.5;
// SPEC_FULL ยง6). The core only depends on vgtpl.Markdown's interface
// shape; this package supplies a concrete goldmark-backed
// implementation.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// Converter renders markdown source into its rendered form. It
// structurally satisfies vgtpl.Markdown without vgtpl importing this
// package, avoiding an import cycle.
type Converter interface {
	Convert(src string) (string, error)
}

// goldmarkConverter adapts goldmark.Markdown to Converter, grounded on
// other_examples' evaluator.go, which renders markdown-to-HTML the
// same way (goldmark.New() + .Convert).
type goldmarkConverter struct {
	md goldmark.Markdown
}

// New returns the default Converter, backed by goldmark's standard
// CommonMark-compatible renderer.
func New() Converter {
	return &goldmarkConverter{md: goldmark.New()}
}

func (c *goldmarkConverter) Convert(src string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
