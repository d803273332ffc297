package convert

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"dsc/common"
	"dsc/markdown"
)

func TestRenderMarkdownRoundTrip(t *testing.T) {

	blocks := markdown.Parse("# Title\n\nHello **world**", nil, zaptest.NewLogger(t))
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	expected := "# Title\n\nHello **world**\n"
	if got := RenderMarkdown(blocks); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestRenderMarkdown(t *testing.T) {

	cases := []struct {
		name     string
		blocks   []markdown.Block
		expected string
	}{
		{
			"code block",
			[]markdown.Block{{Kind: markdown.BlockCode, Code: &markdown.Code{Language: "go", Content: "x := 1"}}},
			"```go\nx := 1\n```\n",
		},
		{
			"numbered items keep ordinal one",
			[]markdown.Block{
				{Kind: markdown.BlockNumbered, Numbered: &markdown.ListItem{Text: []markdown.Span{{Text: "first"}}}},
				{Kind: markdown.BlockNumbered, Numbered: &markdown.ListItem{Text: []markdown.Span{{Text: "second"}}}},
			},
			"1. first\n1. second",
		},
		{
			"external image",
			[]markdown.Block{{Kind: markdown.BlockMedia, Media: &markdown.Media{
				Kind: common.FileKindImage, ExternalURL: "https://example.com/a.png",
			}}},
			"![](https://example.com/a.png)\n",
		},
		{
			"hosted file url fallback",
			[]markdown.Block{{Kind: markdown.BlockMedia, Media: &markdown.Media{
				Kind: common.FileKindImage, FileURL: "https://files.example.com/tmp/a.png",
			}}},
			"![](https://files.example.com/tmp/a.png)\n",
		},
		{
			"table is skipped",
			[]markdown.Block{{Kind: markdown.BlockTable, Table: &markdown.Table{Width: 1}}},
			"",
		},
		{
			"link and bare url",
			[]markdown.Block{{Kind: markdown.BlockParagraph, Paragraph: &markdown.Paragraph{Text: []markdown.Span{
				{Text: "docs", Link: "https://example.com/docs"},
				{Text: " "},
				{Text: "https://example.com", Link: "https://example.com"},
			}}}},
			"[docs](https://example.com/docs) https://example.com\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := RenderMarkdown(c.blocks); got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
		})
	}
}
