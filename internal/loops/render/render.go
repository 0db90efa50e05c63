// Package render turns stored markdown into HTML for display fields.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown source to HTML.
type Renderer interface {
	Render(src string) (string, error)
}

// Markdown is a goldmark-backed Renderer. Raw HTML in the source is escaped.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown renders GitHub-flavoured markdown; single newlines stay soft.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// NewMarkdownWithBreaks also turns single newlines into <br>.
func NewMarkdownWithBreaks() *Markdown {
	return &Markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)}
}

func (m *Markdown) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Func adapts a plain function to Renderer.
type Func func(src string) (string, error)

func (f Func) Render(src string) (string, error) { return f(src) }
