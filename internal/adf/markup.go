package adf

import (
	"regexp"
	"strings"
)

const fence = "```"

var inlineCode = regexp.MustCompile("`([^`]+)`")

// FromMarkup converts a constrained markup subset (## and ### headings,
// fenced code blocks, inline code spans, plain paragraphs) into block nodes.
// It never fails: anything it does not recognize becomes a paragraph.
//
// Link syntax ([text](url)) is not interpreted and stays literal text.
func FromMarkup(markup string) []Node {
	nodes := []Node{}
	lines := strings.Split(markup, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "### "):
			nodes = append(nodes, Heading(3, strings.TrimSpace(line[4:])))

		case strings.HasPrefix(line, "## "):
			nodes = append(nodes, Heading(2, strings.TrimSpace(line[3:])))

		case strings.HasPrefix(line, fence):
			var code []string
			i++
			for i < len(lines) && !strings.HasPrefix(lines[i], fence) {
				code = append(code, lines[i])
				i++
			}
			// i now sits on the closing fence (or past the end); the loop increment skips it.
			if len(code) > 0 {
				nodes = append(nodes, CodeBlock(strings.Join(code, "\n")))
			}

		default:
			nodes = append(nodes, Paragraph(parseInline(line)...))
		}
	}

	return nodes
}

func parseInline(text string) []Node {
	matches := inlineCode.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Node{Text(text)}
	}

	var runs []Node
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			runs = append(runs, Text(text[last:start]))
		}
		runs = append(runs, Text(text[m[2]:m[3]], MarkCode))
		last = end
	}
	if last < len(text) {
		runs = append(runs, Text(text[last:]))
	}

	return runs
}
