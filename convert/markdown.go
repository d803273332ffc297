// Package convert renders block trees into the formats the sync targets
// understand (Markdown and sectioned HTML) and converts pulled HTML back to
// Markdown. Rendering is total over well-formed block trees; an unknown
// block kind is a programming error and panics.
package convert

import (
	"fmt"
	"strings"

	"dsc/common"
	"dsc/markdown"
)

// RenderMarkdown renders a block tree back into Markdown text. Inline
// annotation markers are re-emitted, so a parse/render cycle preserves
// styling even though non-significant whitespace may differ. Numbered items
// always render with ordinal "1." - the consuming platforms re-number list
// items themselves. Tables and callouts have no Markdown rendering and are
// skipped.
func RenderMarkdown(blocks []markdown.Block) string {

	var lines []string

	for _, block := range blocks {
		switch block.Kind {

		case markdown.BlockHeading:
			h := block.Heading
			lines = append(lines, strings.Repeat("#", h.Level)+" "+spansToMarkdown(h.Text), "")

		case markdown.BlockParagraph:
			lines = append(lines, spansToMarkdown(block.Paragraph.Text), "")

		case markdown.BlockCode:
			c := block.Code
			lines = append(lines, "```"+c.Language, c.Content, "```", "")

		case markdown.BlockBullet:
			lines = append(lines, "- "+spansToMarkdown(block.Bullet.Text))

		case markdown.BlockNumbered:
			lines = append(lines, "1. "+spansToMarkdown(block.Numbered.Text))

		case markdown.BlockMedia:
			m := block.Media
			if m.Kind == common.FileKindImage {
				url := m.ExternalURL
				if len(url) == 0 {
					url = m.FileURL
				}
				lines = append(lines, fmt.Sprintf("![](%s)", url), "")
			}

		case markdown.BlockTable, markdown.BlockCallout:
			// not representable

		default:
			// this should never happen
			panic(fmt.Sprintf("unknown block kind %d", block.Kind))
		}
	}
	return strings.Join(lines, "\n")
}

// spansToMarkdown re-emits inline markers around each span. Markers nest in
// a fixed order with the link applied outermost; a span whose text equals
// its link target renders as a bare URL.
func spansToMarkdown(spans []markdown.Span) string {

	var sb strings.Builder
	for _, s := range spans {
		text := s.Text
		if s.Annot.Bold {
			text = "**" + text + "**"
		}
		if s.Annot.Italic {
			text = "*" + text + "*"
		}
		if s.Annot.Code {
			text = "`" + text + "`"
		}
		if s.Annot.Strikethrough {
			text = "~~" + text + "~~"
		}
		// underline has no Markdown marker

		if len(s.Link) > 0 && s.Link != s.Text {
			text = fmt.Sprintf("[%s](%s)", text, s.Link)
		}
		sb.WriteString(text)
	}
	return sb.String()
}
