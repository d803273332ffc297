package notion

import (
	"strings"

	"dsc/common"
	"dsc/markdown"
)

// API block object shapes. Only the fields this tool reads and writes are
// modeled; unknown fields in responses are ignored.

type richText struct {
	Type        string       `json:"type"`
	Text        textContent  `json:"text"`
	Annotations *annotations `json:"annotations,omitempty"`
}

type textContent struct {
	Content string    `json:"content"`
	Link    *textLink `json:"link,omitempty"`
}

type textLink struct {
	URL string `json:"url"`
}

type annotations struct {
	Bold          bool `json:"bold,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Code          bool `json:"code,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
	Underline     bool `json:"underline,omitempty"`
}

type richTextBody struct {
	RichText []richText `json:"rich_text"`
}

type codeBody struct {
	RichText []richText `json:"rich_text"`
	Language string     `json:"language"`
}

type tableBody struct {
	TableWidth      int        `json:"table_width"`
	HasColumnHeader bool       `json:"has_column_header"`
	HasRowHeader    bool       `json:"has_row_header"`
	Children        []apiBlock `json:"children,omitempty"`
}

type tableRowBody struct {
	Cells [][]richText `json:"cells"`
}

type idRef struct {
	ID string `json:"id"`
}

type urlRef struct {
	URL string `json:"url"`
}

type mediaBody struct {
	Type       string `json:"type,omitempty"`
	FileUpload *idRef `json:"file_upload,omitempty"`
	External   *urlRef `json:"external,omitempty"`
	File       *urlRef `json:"file,omitempty"`
}

type emojiIcon struct {
	Emoji string `json:"emoji"`
}

type calloutBody struct {
	RichText []richText `json:"rich_text"`
	Icon     *emojiIcon `json:"icon,omitempty"`
}

// apiBlock is a single block object. Exactly one body field matching Type
// is set, mirroring the tagged shape of the API schema.
type apiBlock struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	HasMore  bool   `json:"has_children,omitempty"`

	Heading1  *richTextBody `json:"heading_1,omitempty"`
	Heading2  *richTextBody `json:"heading_2,omitempty"`
	Heading3  *richTextBody `json:"heading_3,omitempty"`
	Paragraph *richTextBody `json:"paragraph,omitempty"`
	Code      *codeBody     `json:"code,omitempty"`
	Bulleted  *richTextBody `json:"bulleted_list_item,omitempty"`
	Numbered  *richTextBody `json:"numbered_list_item,omitempty"`
	Table     *tableBody    `json:"table,omitempty"`
	TableRow  *tableRowBody `json:"table_row,omitempty"`
	Image     *mediaBody    `json:"image,omitempty"`
	Video     *mediaBody    `json:"video,omitempty"`
	Audio     *mediaBody    `json:"audio,omitempty"`
	PDF       *mediaBody    `json:"pdf,omitempty"`
	File      *mediaBody    `json:"file,omitempty"`
	Callout   *calloutBody  `json:"callout,omitempty"`
}

func spansToRichText(spans []markdown.Span) []richText {

	out := make([]richText, 0, len(spans))
	for _, s := range spans {
		rt := richText{Type: "text", Text: textContent{Content: s.Text}}
		if len(s.Link) > 0 {
			rt.Text.Link = &textLink{URL: s.Link}
		}
		if !s.Annot.IsZero() {
			rt.Annotations = &annotations{
				Bold:          s.Annot.Bold,
				Italic:        s.Annot.Italic,
				Code:          s.Annot.Code,
				Strikethrough: s.Annot.Strikethrough,
				Underline:     s.Annot.Underline,
			}
		}
		out = append(out, rt)
	}
	return out
}

func richTextToSpans(rt []richText) []markdown.Span {

	out := make([]markdown.Span, 0, len(rt))
	for _, r := range rt {
		s := markdown.Span{Text: r.Text.Content}
		if r.Text.Link != nil {
			s.Link = r.Text.Link.URL
		}
		if r.Annotations != nil {
			s.Annot = markdown.Annotations{
				Bold:          r.Annotations.Bold,
				Italic:        r.Annotations.Italic,
				Code:          r.Annotations.Code,
				Strikethrough: r.Annotations.Strikethrough,
				Underline:     r.Annotations.Underline,
			}
		}
		out = append(out, s)
	}
	return out
}

func plainRichText(rt []richText) string {
	var sb strings.Builder
	for _, r := range rt {
		sb.WriteString(r.Text.Content)
	}
	return sb.String()
}

func mediaToAPI(m *markdown.Media) *mediaBody {
	if len(m.UploadID) > 0 {
		return &mediaBody{Type: "file_upload", FileUpload: &idRef{ID: m.UploadID}}
	}
	return &mediaBody{Type: "external", External: &urlRef{URL: m.ExternalURL}}
}

// encodeBlocks converts a block tree into API block objects. The block kinds
// the parser produces map one to one onto the API schema; an unknown kind is
// a programming error.
func encodeBlocks(blocks []markdown.Block) []apiBlock {

	out := make([]apiBlock, 0, len(blocks))

	for _, b := range blocks {
		switch b.Kind {

		case markdown.BlockHeading:
			body := &richTextBody{RichText: spansToRichText(b.Heading.Text)}
			api := apiBlock{}
			switch b.Heading.Level {
			case 1:
				api.Type, api.Heading1 = "heading_1", body
			case 2:
				api.Type, api.Heading2 = "heading_2", body
			default:
				api.Type, api.Heading3 = "heading_3", body
			}
			out = append(out, api)

		case markdown.BlockParagraph:
			out = append(out, apiBlock{Type: "paragraph",
				Paragraph: &richTextBody{RichText: spansToRichText(b.Paragraph.Text)}})

		case markdown.BlockCode:
			out = append(out, apiBlock{Type: "code", Code: &codeBody{
				RichText: []richText{{Type: "text", Text: textContent{Content: b.Code.Content}}},
				Language: b.Code.Language,
			}})

		case markdown.BlockBullet:
			out = append(out, apiBlock{Type: "bulleted_list_item",
				Bulleted: &richTextBody{RichText: spansToRichText(b.Bullet.Text)}})

		case markdown.BlockNumbered:
			out = append(out, apiBlock{Type: "numbered_list_item",
				Numbered: &richTextBody{RichText: spansToRichText(b.Numbered.Text)}})

		case markdown.BlockTable:
			rows := make([]apiBlock, 0, len(b.Table.Rows))
			for _, row := range b.Table.Rows {
				cells := make([][]richText, 0, len(row))
				for _, cell := range row {
					cells = append(cells, spansToRichText(cell))
				}
				rows = append(rows, apiBlock{Type: "table_row", TableRow: &tableRowBody{Cells: cells}})
			}
			out = append(out, apiBlock{Type: "table", Table: &tableBody{
				TableWidth:      b.Table.Width,
				HasColumnHeader: b.Table.HasHeader,
				Children:        rows,
			}})

		case markdown.BlockMedia:
			body := mediaToAPI(b.Media)
			api := apiBlock{Type: b.Media.Kind.String()}
			switch b.Media.Kind {
			case common.FileKindImage:
				api.Image = body
			case common.FileKindVideo:
				api.Video = body
			case common.FileKindAudio:
				api.Audio = body
			case common.FileKindPdf:
				api.PDF = body
			default:
				api.Type, api.File = "file", body
			}
			out = append(out, api)

		case markdown.BlockCallout:
			out = append(out, apiBlock{Type: "callout", Callout: &calloutBody{
				RichText: []richText{{Type: "text", Text: textContent{Content: b.Callout.Text}}},
				Icon:     &emojiIcon{Emoji: b.Callout.Icon},
			}})

		default:
			// this should never happen
			panic("unknown block kind")
		}
	}
	return out
}

func decodeMedia(kind common.FileKind, body *mediaBody) markdown.Block {
	m := &markdown.Media{Kind: kind}
	switch {
	case body == nil:
	case body.FileUpload != nil:
		m.UploadID = body.FileUpload.ID
	case body.External != nil:
		m.ExternalURL = body.External.URL
	case body.File != nil:
		m.FileURL = body.File.URL
	}
	return markdown.Block{Kind: markdown.BlockMedia, Media: m}
}

// decodeBlocks converts fetched API block objects back into the block tree.
// Block types the model does not cover are dropped.
func decodeBlocks(api []apiBlock) []markdown.Block {

	var out []markdown.Block

	for _, a := range api {
		switch a.Type {

		case "heading_1", "heading_2", "heading_3":
			level := int(a.Type[len(a.Type)-1] - '0')
			var body *richTextBody
			switch level {
			case 1:
				body = a.Heading1
			case 2:
				body = a.Heading2
			default:
				body = a.Heading3
			}
			if body == nil {
				continue
			}
			out = append(out, markdown.Block{Kind: markdown.BlockHeading,
				Heading: &markdown.Heading{Level: level, Text: richTextToSpans(body.RichText)}})

		case "paragraph":
			if a.Paragraph == nil {
				continue
			}
			out = append(out, markdown.Block{Kind: markdown.BlockParagraph,
				Paragraph: &markdown.Paragraph{Text: richTextToSpans(a.Paragraph.RichText)}})

		case "code":
			if a.Code == nil {
				continue
			}
			out = append(out, markdown.Block{Kind: markdown.BlockCode, Code: &markdown.Code{
				Language: a.Code.Language,
				Content:  plainRichText(a.Code.RichText),
			}})

		case "bulleted_list_item":
			if a.Bulleted == nil {
				continue
			}
			out = append(out, markdown.Block{Kind: markdown.BlockBullet,
				Bullet: &markdown.ListItem{Text: richTextToSpans(a.Bulleted.RichText)}})

		case "numbered_list_item":
			if a.Numbered == nil {
				continue
			}
			out = append(out, markdown.Block{Kind: markdown.BlockNumbered,
				Numbered: &markdown.ListItem{Text: richTextToSpans(a.Numbered.RichText)}})

		case "table":
			if a.Table == nil {
				continue
			}
			rows := make([][]markdown.TableCell, 0, len(a.Table.Children))
			for _, row := range a.Table.Children {
				if row.TableRow == nil {
					continue
				}
				cells := make([]markdown.TableCell, 0, len(row.TableRow.Cells))
				for _, cell := range row.TableRow.Cells {
					cells = append(cells, markdown.TableCell(richTextToSpans(cell)))
				}
				rows = append(rows, cells)
			}
			out = append(out, markdown.Block{Kind: markdown.BlockTable, Table: &markdown.Table{
				Width:     a.Table.TableWidth,
				HasHeader: a.Table.HasColumnHeader,
				Rows:      rows,
			}})

		case "image":
			out = append(out, decodeMedia(common.FileKindImage, a.Image))
		case "video":
			out = append(out, decodeMedia(common.FileKindVideo, a.Video))
		case "audio":
			out = append(out, decodeMedia(common.FileKindAudio, a.Audio))
		case "pdf":
			out = append(out, decodeMedia(common.FileKindPdf, a.PDF))
		case "file":
			out = append(out, decodeMedia(common.FileKindFile, a.File))

		case "callout":
			if a.Callout == nil {
				continue
			}
			c := &markdown.Callout{Text: plainRichText(a.Callout.RichText)}
			if a.Callout.Icon != nil {
				c.Icon = a.Callout.Icon.Emoji
			}
			out = append(out, markdown.Block{Kind: markdown.BlockCallout, Callout: c})
		}
	}
	return out
}
