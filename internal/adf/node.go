// Package adf models the subset of the Atlassian Document Format used for
// ticket descriptions and converts lightweight markup into it.
package adf

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	TypeDoc       = "doc"
	TypeParagraph = "paragraph"
	TypeHeading   = "heading"
	TypeCodeBlock = "codeBlock"
	TypeRule      = "rule"
	TypeText      = "text"
)

const (
	MarkCode   = "code"
	MarkStrong = "strong"
	MarkEm     = "em"
)

type Mark struct {
	Type string `json:"type"`
}

type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

type Document struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

func NewDocument(content ...Node) Document {
	if content == nil {
		content = []Node{}
	}
	return Document{Type: TypeDoc, Version: 1, Content: content}
}

func Text(s string, marks ...string) Node {
	n := Node{Type: TypeText, Text: s}
	for _, m := range marks {
		n.Marks = append(n.Marks, Mark{Type: m})
	}
	return n
}

func Paragraph(content ...Node) Node {
	return Node{Type: TypeParagraph, Content: content}
}

// Heading drops the text run when text is empty; the format rejects empty text nodes.
func Heading(level int, text string) Node {
	n := Node{Type: TypeHeading, Attrs: map[string]any{"level": level}}
	if text != "" {
		n.Content = []Node{Text(text)}
	}
	return n
}

// CodeBlock drops the text run when text is empty, like Heading.
func CodeBlock(text string) Node {
	n := Node{Type: TypeCodeBlock}
	if text != "" {
		n.Content = []Node{Text(text)}
	}
	return n
}

func Rule() Node {
	return Node{Type: TypeRule}
}

// HasMark reports whether the node carries the given mark.
func (n Node) HasMark(mark string) bool {
	for _, m := range n.Marks {
		if m.Type == mark {
			return true
		}
	}
	return false
}

// PlainText projects a document onto its text runs, one block per line.
func PlainText(doc Document) string {
	var sb strings.Builder
	for _, block := range doc.Content {
		writeText(&sb, block)
		if block.Type != TypeText {
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeText(sb *strings.Builder, n Node) {
	if n.Type == TypeText {
		sb.WriteString(n.Text)
		return
	}
	for _, child := range n.Content {
		writeText(sb, child)
	}
}

// DecodePlainText accepts a raw description field, which may be an ADF
// object, a JSON string or null, and returns its plain-text projection.
func DecodePlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	return PlainText(doc)
}

// DecodeSearchText returns every string value in a raw description field,
// newline separated. Unlike DecodePlainText it keeps attribute values, so a
// URL the editor turned into an inlineCard (attrs.url) or a link mark
// (attrs.href) is still present.
func DecodeSearchText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	var parts []string
	collectStrings(v, &parts)
	return strings.Join(parts, "\n")
}

func collectStrings(v any, parts *[]string) {
	switch t := v.(type) {
	case string:
		*parts = append(*parts, t)
	case []any:
		for _, item := range t {
			collectStrings(item, parts)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], parts)
		}
	}
}
