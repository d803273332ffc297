package markdown

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var ordinalPattern = regexp.MustCompile(`^\d+\.\s`)

// Parse converts Markdown text into a flat sequence of blocks. media supplies
// resolutions for embedded media references, it may be nil. The parser never
// fails - anything it cannot classify degrades to a paragraph and unresolved
// media becomes a callout.
func Parse(text string, media MediaMap, log *zap.Logger) []Block {

	if media == nil {
		media = MediaMap{}
	}

	lines := strings.Split(text, "\n")
	total := len(lines)

	log.Debug("parsing markdown", zap.Int("lines", total))

	var blocks []Block

	for i := 0; i < total; {

		line := lines[i]
		switch {

		case len(strings.TrimSpace(line)) == 0:
			i++

		case strings.HasPrefix(line, "#"):
			blocks = append(blocks, parseHeading(line))
			i++

		case strings.HasPrefix(line, "```"):
			code, consumed := parseCodeBlock(lines[i:], log)
			blocks = append(blocks, code...)
			i += max(consumed, 1)

		case hasBulletMarker(strings.TrimSpace(line)):
			if item, ok := parseBulletItem(line); ok {
				blocks = append(blocks, item)
			}
			i++

		case ordinalPattern.MatchString(strings.TrimSpace(line)):
			if item, ok := parseNumberedItem(line); ok {
				blocks = append(blocks, item)
			}
			i++

		case strings.Contains(line, "|") && i+1 < total:
			if table, consumed := parseTable(lines[i:]); table != nil {
				blocks = append(blocks, *table)
				i += max(consumed, 1)
			} else {
				para, consumed := parseParagraph(lines[i:])
				if para != nil {
					blocks = append(blocks, *para)
				}
				i += max(consumed, 1)
			}

		case strings.Contains(line, "!["):
			blocks = append(blocks, parseLineMedia(line, media)...)
			i++

		default:
			para, consumed := parseParagraph(lines[i:])
			if para != nil {
				blocks = append(blocks, *para)
			}
			i += max(consumed, 1)
		}
	}

	log.Debug("parsed markdown", zap.Int("blocks", len(blocks)))
	return blocks
}

func parseHeading(line string) Block {

	level := 0
	for _, c := range line {
		if c != '#' {
			break
		}
		level++
	}
	// both target platforms support three heading levels only
	level = min(level, 3)
	text := strings.TrimSpace(line[level:])

	return Block{
		Kind:    BlockHeading,
		Heading: &Heading{Level: level, Text: TokenizeSpans(text)},
	}
}

func hasBulletMarker(s string) bool {
	return strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "+ ")
}

func parseBulletItem(line string) (Block, bool) {

	s := strings.TrimSpace(line)
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, prefix) {
			text := strings.TrimSpace(s[len(prefix):])
			return Block{
				Kind:   BlockBullet,
				Bullet: &ListItem{Text: TokenizeSpans(text)},
			}, true
		}
	}
	return Block{}, false
}

var numberedItemPattern = regexp.MustCompile(`^\d+\.\s(.+)$`)

func parseNumberedItem(line string) (Block, bool) {

	m := numberedItemPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Block{}, false
	}
	return Block{
		Kind:     BlockNumbered,
		Numbered: &ListItem{Text: TokenizeSpans(strings.TrimSpace(m[1]))},
	}, true
}

// parseParagraph consumes contiguous lines until a blank line or a line that
// starts another construct, joins them with a single space and tokenizes the
// result. Returns nil when nothing could be consumed - the caller still
// advances one line so the parse always terminates.
func parseParagraph(lines []string) (*Block, int) {

	if len(lines) == 0 {
		return nil, 1
	}

	var para []string
	consumed := 0

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if len(stripped) == 0 {
			break
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") ||
			strings.HasPrefix(stripped, "-") || strings.HasPrefix(stripped, "*") || strings.HasPrefix(stripped, "+") ||
			ordinalPattern.MatchString(stripped) {
			break
		}
		para = append(para, line)
		consumed++
	}

	if len(para) == 0 {
		return nil, 1
	}

	text := strings.TrimSpace(strings.Join(para, " "))
	return &Block{
		Kind:      BlockParagraph,
		Paragraph: &Paragraph{Text: TokenizeSpans(text)},
	}, consumed
}
