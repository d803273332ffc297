package markdown

import (
	"regexp"
	"strings"
)

// separatorPattern matches the header separator row, e.g. "|---|:---:|".
var separatorPattern = regexp.MustCompile(`^[\s\|\-:]+$`)

// parseTable attempts to parse a pipe-delimited table starting at lines[0].
// It needs at least a header row and a separator row; otherwise it reports
// failure and the caller falls back to a paragraph. Data rows are padded or
// truncated to the header width so the table invariant always holds.
func parseTable(lines []string) (*Block, int) {

	if len(lines) == 0 || !strings.Contains(lines[0], "|") {
		return nil, 0
	}

	var tableLines []string
	consumed := 0
	for _, line := range lines {
		if !strings.Contains(line, "|") {
			break
		}
		tableLines = append(tableLines, line)
		consumed++
	}

	if len(tableLines) < 2 {
		return nil, 0
	}
	if !separatorPattern.MatchString(tableLines[1]) {
		return nil, 0
	}

	header := splitRow(tableLines[0])
	width := len(header)

	rows := [][]TableCell{tokenizeRow(header)}

	for _, line := range tableLines[2:] {
		row := splitRow(line)
		if len(row) == 0 {
			continue
		}
		for len(row) < width {
			row = append(row, "")
		}
		rows = append(rows, tokenizeRow(row[:width]))
	}

	return &Block{
		Kind: BlockTable,
		Table: &Table{
			Width:     width,
			HasHeader: true,
			Rows:      rows,
		},
	}, consumed
}

// splitRow splits a table line on pipes, trimming cells and dropping empty
// ones (which also removes the leading/trailing pipe artifacts).
func splitRow(line string) []string {
	var cells []string
	for _, cell := range strings.Split(line, "|") {
		if cell = strings.TrimSpace(cell); len(cell) > 0 {
			cells = append(cells, cell)
		}
	}
	return cells
}

func tokenizeRow(cells []string) []TableCell {
	row := make([]TableCell, 0, len(cells))
	for _, cell := range cells {
		row = append(row, TableCell(TokenizeSpans(cell)))
	}
	return row
}
