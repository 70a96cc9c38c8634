// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package markdown renders completion replies into the HTML subset
// Matrix clients display in formatted_body.
//
// Rendering uses goldmark with the GitHub Flavored Markdown extensions
// (tables, strikethrough, autolinks, task lists). Raw HTML in the
// source is dropped rather than passed through, so model output cannot
// inject markup into the room.
package markdown

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownInstance is initialized once and reused. The goldmark
// configuration never changes and per-call state lives in the parser
// context created by Parse.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownInstance
}

// Render converts markdown source to HTML. formatted is false when the
// source carries no markup at all (a single paragraph of plain text),
// in which case html is empty and the plain body alone should be sent.
func Render(source string) (html string, formatted bool, err error) {
	if strings.TrimSpace(source) == "" {
		return "", false, nil
	}

	input := []byte(source)
	document := converter().Parser().Parse(text.NewReader(input))
	if isPlainParagraph(document) {
		return "", false, nil
	}

	var output bytes.Buffer
	if err := converter().Renderer().Render(&output, input, document); err != nil {
		return "", false, fmt.Errorf("markdown: rendering: %w", err)
	}
	return strings.TrimRight(output.String(), "\n"), true, nil
}

// isPlainParagraph reports whether document is one paragraph made only
// of text runs without hard line breaks.
func isPlainParagraph(document ast.Node) bool {
	if document.ChildCount() != 1 {
		return false
	}
	paragraph := document.FirstChild()
	if paragraph.Kind() != ast.KindParagraph {
		return false
	}
	for child := paragraph.FirstChild(); child != nil; child = child.NextSibling() {
		textNode, ok := child.(*ast.Text)
		if !ok || textNode.HardLineBreak() {
			return false
		}
	}
	return true
}
