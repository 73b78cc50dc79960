// Package markdown renders discussion and reply bodies.
//
// Output is always passed through htmlsanitize, so raw HTML typed by a
// user never reaches the page unfiltered.
package markdown

import (
	"bytes"
	"html/template"

	"github.com/dalemusser/studyhub/internal/app/system/htmlsanitize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Render converts markdown src to sanitized HTML. If conversion fails the
// source is shown as escaped plain text.
func Render(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(src), &buf); err != nil {
		return template.HTML(htmlsanitize.PlainTextToHTML(src))
	}
	return htmlsanitize.SanitizeToHTML(buf.String())
}
