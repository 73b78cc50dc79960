// Package htmlsanitize cleans user-authored HTML before it is rendered.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the shared bluemonday policy: the UGC baseline with
// links forced to open safely and tables allowed.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		p.AllowAttrs("class").OnElements("table", "code", "pre")
		p.AllowURLSchemes("http", "https", "mailto")
		policy = p
	})
	return policy
}

// Sanitize strips scripts, event handlers, and unsafe URLs from s.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return Policy().Sanitize(s)
}

// SanitizeToHTML sanitizes s and marks it safe for templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and converts newlines to <br> inside a
// single paragraph.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay renders plain text as escaped paragraphs and
// sanitizes anything that already contains markup.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
