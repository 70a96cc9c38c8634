// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		source        string
		wantFormatted bool
		wantContains  []string
	}{
		{name: "plain text", source: "hi there"},
		{name: "plain text with soft break", source: "hi there\nhow are you"},
		{name: "empty", source: "  \n"},
		{
			name:          "emphasis",
			source:        "this is **bold**",
			wantFormatted: true,
			wantContains:  []string{"<strong>bold</strong>"},
		},
		{
			name:          "code block",
			source:        "```go\nfmt.Println(1)\n```",
			wantFormatted: true,
			wantContains:  []string{`<pre><code class="language-go">`, "fmt.Println(1)"},
		},
		{
			name:          "two paragraphs",
			source:        "first\n\nsecond",
			wantFormatted: true,
			wantContains:  []string{"<p>first</p>", "<p>second</p>"},
		},
		{
			name:          "strikethrough",
			source:        "~~gone~~",
			wantFormatted: true,
			wantContains:  []string{"<del>gone</del>"},
		},
		{
			name:          "table",
			source:        "| a | b |\n|---|---|\n| 1 | 2 |",
			wantFormatted: true,
			wantContains:  []string{"<table>", "<td>1</td>"},
		},
		{
			name:          "list",
			source:        "- one\n- two",
			wantFormatted: true,
			wantContains:  []string{"<ul>", "<li>one</li>"},
		},
		{
			name:          "autolink",
			source:        "see https://example.org",
			wantFormatted: true,
			wantContains:  []string{`<a href="https://example.org">`},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			html, formatted, err := Render(test.source)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if formatted != test.wantFormatted {
				t.Fatalf("formatted = %v, want %v (html %q)", formatted, test.wantFormatted, html)
			}
			if !formatted && html != "" {
				t.Errorf("unformatted render returned html %q", html)
			}
			for _, fragment := range test.wantContains {
				if !strings.Contains(html, fragment) {
					t.Errorf("html %q does not contain %q", html, fragment)
				}
			}
			if strings.HasSuffix(html, "\n") {
				t.Errorf("html has a trailing newline: %q", html)
			}
		})
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	t.Parallel()

	html, formatted, err := Render("<script>alert(1)</script>\n\n**x**")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !formatted {
		t.Fatal("expected formatted output")
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw HTML passed through: %q", html)
	}
}
