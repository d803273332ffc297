package markdown

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"dsc/common"
)

func TestParseHeading(t *testing.T) {

	log := zaptest.NewLogger(t)

	cases := []struct {
		name  string
		line  string
		level int
		text  string
	}{
		{"h1", "# Title", 1, "Title"},
		{"h3", "### Deep", 3, "Deep"},
		{"clamped", "##### Very deep", 3, "## Very deep"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			blocks := Parse(c.line, nil, log)
			if len(blocks) != 1 || blocks[0].Kind != BlockHeading {
				t.Fatalf("expected single heading, got %+v", blocks)
			}
			h := blocks[0].Heading
			if h.Level != c.level {
				t.Errorf("level: expected %d, got %d", c.level, h.Level)
			}
			if got := PlainText(h.Text); got != c.text {
				t.Errorf("text: expected %q, got %q", c.text, got)
			}
		})
	}
}

func TestParseParagraphJoinsLines(t *testing.T) {

	blocks := Parse("first line\nsecond line\n\nnext para", nil, zaptest.NewLogger(t))
	if len(blocks) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(blocks))
	}
	if got := PlainText(blocks[0].Paragraph.Text); got != "first line second line" {
		t.Errorf("unexpected paragraph text %q", got)
	}
}

func TestParseListItems(t *testing.T) {

	blocks := Parse("- one\n* two\n+ three\n2. counted", nil, zaptest.NewLogger(t))
	if len(blocks) != 4 {
		t.Fatalf("expected 4 items, got %d", len(blocks))
	}
	for i := 0; i < 3; i++ {
		if blocks[i].Kind != BlockBullet {
			t.Errorf("block %d: expected bullet, got %s", i, blocks[i].Kind)
		}
	}
	if blocks[3].Kind != BlockNumbered {
		t.Fatalf("expected numbered item, got %s", blocks[3].Kind)
	}
	if got := PlainText(blocks[3].Numbered.Text); got != "counted" {
		t.Errorf("unexpected item text %q", got)
	}
}

func TestParseUnclosedFence(t *testing.T) {

	blocks := Parse("```go\nfunc main() {}", nil, zaptest.NewLogger(t))
	if len(blocks) != 1 || blocks[0].Kind != BlockCode {
		t.Fatalf("expected single code block, got %+v", blocks)
	}
	if blocks[0].Code.Language != "go" {
		t.Errorf("unexpected language %q", blocks[0].Code.Language)
	}
	if blocks[0].Code.Content != "func main() {}" {
		t.Errorf("unexpected content %q", blocks[0].Code.Content)
	}
}

func TestParseFenceDefaultLanguage(t *testing.T) {

	blocks := Parse("```\nx\n```", nil, zaptest.NewLogger(t))
	if len(blocks) != 1 || blocks[0].Code.Language != "plain text" {
		t.Fatalf("expected default language, got %+v", blocks)
	}
}

func TestParseTableFallsBackToParagraph(t *testing.T) {

	// pipe but no separator row - should degrade to a paragraph
	blocks := Parse("a | b\nplain text", nil, zaptest.NewLogger(t))
	if len(blocks) != 1 || blocks[0].Kind != BlockParagraph {
		t.Fatalf("expected paragraph fallback, got %+v", blocks)
	}
}

func TestParseTablePadsAndTruncatesRows(t *testing.T) {

	text := strings.Join([]string{
		"| A | B | C |",
		"|---|---|---|",
		"| 1 |",
		"| 1 | 2 | 3 | 4 |",
	}, "\n")

	blocks := Parse(text, nil, zaptest.NewLogger(t))
	if len(blocks) != 1 || blocks[0].Kind != BlockTable {
		t.Fatalf("expected single table, got %+v", blocks)
	}
	tbl := blocks[0].Table
	if tbl.Width != 3 || !tbl.HasHeader {
		t.Fatalf("unexpected table shape: %+v", tbl)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(tbl.Rows))
	}
	for i, row := range tbl.Rows {
		if len(row) != tbl.Width {
			t.Errorf("row %d: expected width %d, got %d", i, tbl.Width, len(row))
		}
	}
	// padded cell is a single-space span
	if got := PlainText(tbl.Rows[1][1]); got != " " {
		t.Errorf("expected padded cell, got %q", got)
	}
}

func TestParseMediaResolution(t *testing.T) {

	log := zaptest.NewLogger(t)

	t.Run("uploaded", func(t *testing.T) {
		media := MediaMap{"![[clip.mp4]]": {UploadID: "u-1", Kind: common.FileKindVideo}}
		blocks := Parse("![[clip.mp4]]", media, log)
		if len(blocks) != 1 || blocks[0].Kind != BlockMedia {
			t.Fatalf("expected media block, got %+v", blocks)
		}
		m := blocks[0].Media
		if m.Kind != common.FileKindVideo || m.UploadID != "u-1" {
			t.Errorf("unexpected media %+v", m)
		}
	})

	t.Run("external", func(t *testing.T) {
		blocks := Parse("![shot](https://example.com/shot.png)", nil, log)
		if len(blocks) != 1 || blocks[0].Kind != BlockMedia {
			t.Fatalf("expected media block, got %+v", blocks)
		}
		if blocks[0].Media.ExternalURL != "https://example.com/shot.png" {
			t.Errorf("unexpected url %q", blocks[0].Media.ExternalURL)
		}
	})

	t.Run("unresolved wikilink", func(t *testing.T) {
		blocks := Parse("![[missing.png]]", nil, log)
		if len(blocks) != 1 || blocks[0].Kind != BlockCallout {
			t.Fatalf("expected callout fallback, got %+v", blocks)
		}
		if !strings.Contains(blocks[0].Callout.Text, "missing.png") {
			t.Errorf("callout does not name the file: %q", blocks[0].Callout.Text)
		}
	})

	t.Run("standard before wikilink", func(t *testing.T) {
		blocks := Parse("![[a.png]] ![b](https://example.com/b.png)", nil, log)
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if blocks[0].Kind != BlockMedia || blocks[1].Kind != BlockCallout {
			t.Errorf("unexpected emission order: %s, %s", blocks[0].Kind, blocks[1].Kind)
		}
	})
}

func TestParseEmptyInput(t *testing.T) {

	for _, text := range []string{"", "\n\n\n", "   \n\t\n"} {
		if blocks := Parse(text, nil, zaptest.NewLogger(t)); len(blocks) != 0 {
			t.Errorf("input %q: expected no blocks, got %d", text, len(blocks))
		}
	}
}

func TestParseTerminatesOnHostileInput(t *testing.T) {

	// constructs that consume zero lines must still advance the cursor
	hostile := strings.Join([]string{
		"|",
		"| |",
		"```",
		"![",
		"![[",
		"1.",
		"-",
		strings.Repeat("#", 50),
	}, "\n")
	Parse(hostile, nil, zaptest.NewLogger(t)) // must return
}

func TestExtractMediaRefs(t *testing.T) {

	refs := ExtractMediaRefs("see ![[diagram.svg]] and ![demo](vid/demo.mov) here")
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].OriginalRef != "![[diagram.svg]]" || refs[0].Kind != common.FileKindImage {
		t.Errorf("unexpected wikilink ref %+v", refs[0])
	}
	if refs[1].Target != "vid/demo.mov" || refs[1].Alt != "demo" || refs[1].Kind != common.FileKindVideo {
		t.Errorf("unexpected markdown ref %+v", refs[1])
	}
}
