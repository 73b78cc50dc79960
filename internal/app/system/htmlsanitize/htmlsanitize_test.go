package htmlsanitize_test

import (
	"html/template"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		notWant string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain text", input: "Hello, World!", want: "Hello, World!"},
		{name: "safe formatting", input: "<p><strong>Bold</strong> and <em>italic</em></p>", want: "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{name: "script removed", input: "<p>Hello</p><script>alert('xss')</script>", want: "<p>Hello</p>"},
		{name: "onclick removed", input: `<span onclick="alert(1)">x</span>`, notWant: "onclick"},
		{name: "onerror removed", input: `<img src="x.png" onerror="alert(1)">`, notWant: "onerror"},
		{name: "javascript href removed", input: `<a href="javascript:alert(1)">x</a>`, notWant: "javascript:"},
		{name: "iframe removed", input: `<iframe src="https://evil.example"></iframe>`, notWant: "iframe"},
		{name: "form removed", input: `<form action="/x"><input name="a"></form>`, notWant: "<form"},
		{name: "code preserved", input: "<pre><code>x := 1</code></pre>", want: "<pre><code>x := 1</code></pre>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.Sanitize(tt.input)
			if tt.want != "" || tt.input == "" {
				if got != tt.want {
					t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
				}
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, tt.notWant)
			}
		})
	}
}

func TestSanitize_SafeLinksGetRel(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://example.com">Link</a>`)
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("expected link preserved, got %q", got)
	}
	if !strings.Contains(got, "nofollow") {
		t.Errorf("expected rel=nofollow, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextToHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hello, World!", "<p>Hello, World!</p>"},
		{"Line 1\nLine 2", "<p>Line 1<br>Line 2</p>"},
		{"A & B", "<p>A &amp; B</p>"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.PlainTextToHTML(tt.in); got != tt.want {
			t.Errorf("PlainTextToHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := htmlsanitize.PlainTextToHTML("<script>"); strings.Contains(got, "<script>") {
		t.Errorf("expected markup escaped, got %q", got)
	}
}

func TestPrepareForDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want template.HTML
	}{
		{"", ""},
		{"Hello, World!", "<p>Hello, World!</p>"},
		{"<p>Hello</p>", "<p>Hello</p>"},
		{"<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
		{"Line 1\nLine 2", "<p>Line 1<br>Line 2</p>"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.PrepareForDisplay(tt.in); got != tt.want {
			t.Errorf("PrepareForDisplay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
