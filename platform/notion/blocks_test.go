package notion

import (
	"reflect"
	"testing"

	"dsc/common"
	"dsc/markdown"
)

func TestBlocksRoundTrip(t *testing.T) {

	blocks := []markdown.Block{
		{Kind: markdown.BlockHeading, Heading: &markdown.Heading{Level: 2,
			Text: []markdown.Span{{Text: "Setup"}}}},
		{Kind: markdown.BlockParagraph, Paragraph: &markdown.Paragraph{
			Text: []markdown.Span{
				{Text: "Run "},
				{Text: "make", Annot: markdown.Annotations{Code: true}},
				{Text: " first", Annot: markdown.Annotations{Bold: true}},
				{Text: "docs", Link: "https://example.com/docs"},
			}}},
		{Kind: markdown.BlockCode, Code: &markdown.Code{Language: "go", Content: "package main\n"}},
		{Kind: markdown.BlockBullet, Bullet: &markdown.ListItem{Text: []markdown.Span{{Text: "one"}}}},
		{Kind: markdown.BlockNumbered, Numbered: &markdown.ListItem{Text: []markdown.Span{{Text: "two"}}}},
		{Kind: markdown.BlockTable, Table: &markdown.Table{
			Width:     2,
			HasHeader: true,
			Rows: [][]markdown.TableCell{
				{{{Text: "a"}}, {{Text: "b"}}},
				{{{Text: "1"}}, {{Text: "2"}}},
			}}},
		{Kind: markdown.BlockMedia, Media: &markdown.Media{Kind: common.FileKindImage, UploadID: "up-1"}},
		{Kind: markdown.BlockCallout, Callout: &markdown.Callout{Text: "Media: missing.png", Icon: "\U0001F4F7"}},
	}

	decoded := decodeBlocks(encodeBlocks(blocks))

	if !reflect.DeepEqual(blocks, decoded) {
		t.Errorf("round trip mismatch:\nhave %+v\nwant %+v", decoded, blocks)
	}
}

func TestEncodeHeadingLevels(t *testing.T) {

	for _, tc := range []struct {
		level int
		typ   string
	}{
		{1, "heading_1"},
		{2, "heading_2"},
		{3, "heading_3"},
	} {
		api := encodeBlocks([]markdown.Block{
			{Kind: markdown.BlockHeading, Heading: &markdown.Heading{Level: tc.level,
				Text: []markdown.Span{{Text: "h"}}}},
		})
		if len(api) != 1 || api[0].Type != tc.typ {
			t.Errorf("level %d: expected single %s block, got %+v", tc.level, tc.typ, api)
		}
	}
}

func TestEncodeMediaVariants(t *testing.T) {

	api := encodeBlocks([]markdown.Block{
		{Kind: markdown.BlockMedia, Media: &markdown.Media{Kind: common.FileKindVideo, UploadID: "vid-9"}},
		{Kind: markdown.BlockMedia, Media: &markdown.Media{Kind: common.FileKindImage, ExternalURL: "https://example.com/x.png"}},
		{Kind: markdown.BlockMedia, Media: &markdown.Media{Kind: common.FileKindFile, UploadID: "arc-1"}},
	})
	if len(api) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(api))
	}

	if api[0].Type != "video" || api[0].Video == nil || api[0].Video.FileUpload == nil ||
		api[0].Video.FileUpload.ID != "vid-9" {
		t.Errorf("bad video block: %+v", api[0])
	}
	if api[1].Type != "image" || api[1].Image == nil || api[1].Image.External == nil ||
		api[1].Image.External.URL != "https://example.com/x.png" {
		t.Errorf("bad external image block: %+v", api[1])
	}
	// kinds without a dedicated block type become generic files
	if api[2].Type != "file" || api[2].File == nil {
		t.Errorf("bad generic file block: %+v", api[2])
	}
}

func TestDecodeSkipsUnknownTypes(t *testing.T) {

	api := []apiBlock{
		{Type: "divider"},
		{Type: "paragraph", Paragraph: &richTextBody{
			RichText: []richText{{Type: "text", Text: textContent{Content: "kept"}}}}},
		{Type: "toggle"},
	}

	blocks := decodeBlocks(api)
	if len(blocks) != 1 || blocks[0].Kind != markdown.BlockParagraph {
		t.Fatalf("expected single paragraph, got %+v", blocks)
	}
	if got := markdown.PlainText(blocks[0].Paragraph.Text); got != "kept" {
		t.Errorf("expected text %q, got %q", "kept", got)
	}
}

func TestDecodeFileURL(t *testing.T) {

	api := []apiBlock{
		{Type: "image", Image: &mediaBody{Type: "file", File: &urlRef{URL: "https://files.example.com/a.png?sig=1"}}},
	}

	blocks := decodeBlocks(api)
	if len(blocks) != 1 || blocks[0].Kind != markdown.BlockMedia {
		t.Fatalf("expected single media block, got %+v", blocks)
	}
	if blocks[0].Media.FileURL != "https://files.example.com/a.png?sig=1" {
		t.Errorf("expected hosted file url, got %+v", blocks[0].Media)
	}
}
