package markdown

import (
	"strings"

	"go.uber.org/zap"
)

// MaxCodeBlockLength is the hard per-block content limit imposed by the
// target platforms. Longer fenced blocks are split on line boundaries.
const MaxCodeBlockLength = 2000

// parseCodeBlock consumes a fenced code block starting at lines[0] and
// returns one or more code blocks together with the number of lines
// consumed. An unclosed fence runs to end of input.
func parseCodeBlock(lines []string, log *zap.Logger) ([]Block, int) {

	if !strings.HasPrefix(lines[0], "```") {
		return nil, 0
	}

	language := strings.TrimSpace(lines[0][3:])
	if len(language) == 0 {
		language = "plain text"
	}

	var codeLines []string
	consumed := 1

	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "```") {
			consumed++
			break
		}
		codeLines = append(codeLines, line)
		consumed++
	}

	code := strings.Join(codeLines, "\n")
	if len(code) <= MaxCodeBlockLength {
		return []Block{{
			Kind: BlockCode,
			Code: &Code{Language: language, Content: code},
		}}, consumed
	}

	blocks := splitCode(language, codeLines)
	log.Info("split oversized code block", zap.Int("chars", len(code)), zap.Int("blocks", len(blocks)))
	return blocks, consumed
}

// splitCode packs lines into chunks of at most MaxCodeBlockLength characters.
// A full chunk is flushed before the line that would overflow it; a single
// line longer than the limit is emitted as character-sized chunks of its own.
// Splitting never breaks a line that fits.
func splitCode(language string, codeLines []string) []Block {

	codeBlock := func(content string) Block {
		return Block{Kind: BlockCode, Code: &Code{Language: language, Content: content}}
	}

	var blocks []Block
	var chunk []string
	length := 0

	for _, line := range codeLines {
		lineLength := len(line) + 1 // newline

		if len(chunk) > 0 && length+lineLength > MaxCodeBlockLength {
			blocks = append(blocks, codeBlock(strings.Join(chunk, "\n")))
			chunk, length = nil, 0
		}

		if lineLength > MaxCodeBlockLength {
			for start := 0; start < len(line); start += MaxCodeBlockLength {
				end := min(start+MaxCodeBlockLength, len(line))
				blocks = append(blocks, codeBlock(line[start:end]))
			}
		} else {
			chunk = append(chunk, line)
			length += lineLength
		}
	}

	if len(chunk) > 0 {
		blocks = append(blocks, codeBlock(strings.Join(chunk, "\n")))
	}
	return blocks
}
