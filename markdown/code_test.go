package markdown

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestSplitCode(t *testing.T) {

	t.Run("under limit stays single", func(t *testing.T) {
		line := strings.Repeat("x", 100)
		blocks := Parse("```go\n"+line+"\n```", nil, zaptest.NewLogger(t))
		if len(blocks) != 1 {
			t.Fatalf("expected 1 block, got %d", len(blocks))
		}
	})

	t.Run("flushes before overflow", func(t *testing.T) {
		// three lines of 900 chars: 901+901 fits, third overflows
		line := strings.Repeat("a", 900)
		text := "```\n" + line + "\n" + line + "\n" + line + "\n```"
		blocks := Parse(text, nil, zaptest.NewLogger(t))
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if got := len(blocks[0].Code.Content); got != 1801 {
			t.Errorf("first chunk: expected 1801 chars, got %d", got)
		}
		if got := len(blocks[1].Code.Content); got != 900 {
			t.Errorf("second chunk: expected 900 chars, got %d", got)
		}
	})

	t.Run("oversized line is chunked", func(t *testing.T) {
		line := strings.Repeat("b", 2*MaxCodeBlockLength+10)
		blocks := Parse("```\n"+line+"\n```", nil, zaptest.NewLogger(t))
		if len(blocks) != 3 {
			t.Fatalf("expected 3 blocks, got %d", len(blocks))
		}
		for i, b := range blocks {
			if b.Kind != BlockCode {
				t.Fatalf("block %d: expected code, got %s", i, b.Kind)
			}
			if len(b.Code.Content) > MaxCodeBlockLength {
				t.Errorf("block %d exceeds limit: %d chars", i, len(b.Code.Content))
			}
		}
	})

	t.Run("every chunk within limit", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("```python\n")
		for i := 0; i < 200; i++ {
			sb.WriteString(strings.Repeat("line ", 10))
			sb.WriteString("\n")
		}
		sb.WriteString("```")
		blocks := Parse(sb.String(), nil, zaptest.NewLogger(t))
		if len(blocks) < 2 {
			t.Fatalf("expected split, got %d blocks", len(blocks))
		}
		for i, b := range blocks {
			if len(b.Code.Content) > MaxCodeBlockLength {
				t.Errorf("block %d exceeds limit: %d chars", i, len(b.Code.Content))
			}
			if b.Code.Language != "python" {
				t.Errorf("block %d lost language tag: %q", i, b.Code.Language)
			}
		}
	})
}
