// Package content turns author-supplied markdown into HTML that is safe to embed.
package content

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

const excerptEllipsis = "…"

// Renderer converts markdown to sanitized HTML and plain-text excerpts.
type Renderer struct {
	markdown    goldmark.Markdown
	htmlPolicy  *bluemonday.Policy
	stripPolicy *bluemonday.Policy
}

// NewRenderer builds a GitHub-flavored markdown renderer with a user-generated-content sanitizer.
func NewRenderer() *Renderer {
	htmlPolicy := bluemonday.UGCPolicy()
	htmlPolicy.RequireNoFollowOnLinks(true)
	htmlPolicy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe(), goldmarkhtml.WithHardWraps()),
		),
		htmlPolicy:  htmlPolicy,
		stripPolicy: bluemonday.StrictPolicy(),
	}
}

// RenderMarkdown converts markdown to HTML and strips anything outside the sanitizer policy.
func (renderer *Renderer) RenderMarkdown(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buffer bytes.Buffer
	if convertErr := renderer.markdown.Convert([]byte(source), &buffer); convertErr != nil {
		return "", fmt.Errorf("render markdown: %w", convertErr)
	}
	return strings.TrimSpace(renderer.htmlPolicy.Sanitize(buffer.String())), nil
}

// Excerpt renders the markdown, drops every tag and returns at most maxRunes of collapsed text.
func (renderer *Renderer) Excerpt(source string, maxRunes int) (string, error) {
	rendered, renderErr := renderer.RenderMarkdown(source)
	if renderErr != nil {
		return "", renderErr
	}
	plain := html.UnescapeString(renderer.stripPolicy.Sanitize(rendered))
	collapsed := strings.Join(strings.Fields(plain), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(collapsed) <= maxRunes {
		return collapsed, nil
	}
	runes := []rune(collapsed)
	return strings.TrimSpace(string(runes[:maxRunes])) + excerptEllipsis, nil
}
