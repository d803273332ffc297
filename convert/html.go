package convert

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dsc/common"
	"dsc/markdown"
)

// BlobLocations resolves uploaded media for HTML rendering: blob URL and
// original filename keyed by upload identifier.
type BlobLocations struct {
	URLs      map[string]string // upload id -> blob URL path, e.g. /blob/<thread>/<id>
	Filenames map[string]string // upload id -> original filename
}

// HTMLOptions control rendering of the sectioned HTML.
type HTMLOptions struct {
	// BaseURL is prepended to blob URL paths when an absolute link is
	// required (video labels open in a new tab).
	BaseURL string
}

// RenderHTML renders a block tree into the sectioned HTML the collaboration
// platform accepts on document edits. Each block becomes one top-level
// element; blocks are joined with newlines. Uploaded media is located
// through blobs; an upload identifier the map cannot resolve renders as a
// bracketed placeholder naming the block kind, never an error.
func RenderHTML(blocks []markdown.Block, blobs BlobLocations, opts HTMLOptions, log *zap.Logger) string {

	parts := make([]string, 0, len(blocks))

	for _, block := range blocks {
		doc := etree.NewDocument()
		doc.WriteSettings = etree.WriteSettings{
			CanonicalText:    true,
			CanonicalAttrVal: true,
		}

		switch block.Kind {

		case markdown.BlockHeading:
			h := doc.CreateElement(fmt.Sprintf("h%d", block.Heading.Level))
			appendSpans(h, block.Heading.Text)

		case markdown.BlockParagraph:
			appendSpans(doc.CreateElement("p"), block.Paragraph.Text)

		case markdown.BlockCode:
			doc.CreateElement("pre").SetText(block.Code.Content)

		case markdown.BlockBullet:
			li := doc.CreateElement("ul").CreateElement("li")
			appendSpans(li, block.Bullet.Text)

		case markdown.BlockNumbered:
			li := doc.CreateElement("ol").CreateElement("li")
			appendSpans(li, block.Numbered.Text)

		case markdown.BlockMedia:
			renderMediaHTML(doc, block.Media, blobs, opts, log)

		case markdown.BlockTable:
			renderTableHTML(doc, block.Table)

		case markdown.BlockCallout:
			// callouts are a platform-side notion, pushed documents carry
			// them as plain paragraphs
			doc.CreateElement("p").SetText(block.Callout.Text)

		default:
			// this should never happen
			panic(fmt.Sprintf("unknown block kind %d", block.Kind))
		}

		s, err := doc.WriteToString()
		if err != nil {
			// in-memory serialization of a tree we just built
			panic(fmt.Sprintf("unable to serialize block: %v", err))
		}
		parts = append(parts, strings.TrimSuffix(s, "\n"))
	}
	return strings.Join(parts, "\n")
}

// appendSpans writes rich text into parent, one chain of style elements per
// span. Annotations nest in a fixed order with the link element outermost:
// a > u > s > code > i > b > text.
func appendSpans(parent *etree.Element, spans []markdown.Span) {

	for _, s := range spans {
		cur := parent
		if len(s.Link) > 0 {
			a := cur.CreateElement("a")
			a.CreateAttr("href", s.Link)
			cur = a
		}
		if s.Annot.Underline {
			cur = cur.CreateElement("u")
		}
		if s.Annot.Strikethrough {
			cur = cur.CreateElement("s")
		}
		if s.Annot.Code {
			cur = cur.CreateElement("code")
		}
		if s.Annot.Italic {
			cur = cur.CreateElement("i")
		}
		if s.Annot.Bold {
			cur = cur.CreateElement("b")
		}
		cur.CreateText(s.Text)
	}
}

func renderMediaHTML(doc *etree.Document, m *markdown.Media, blobs BlobLocations, opts HTMLOptions, log *zap.Logger) {

	if len(m.ExternalURL) > 0 {
		div := mediaSection(&doc.Element)
		img := div.CreateElement("img")
		img.CreateAttr("src", m.ExternalURL)
		return
	}

	blobURL, ok := blobs.URLs[m.UploadID]
	if !ok {
		log.Warn("no blob location for uploaded media",
			zap.String("kind", m.Kind.String()), zap.String("id", m.UploadID))
		doc.CreateElement("p").SetText("[" + strings.ToUpper(m.Kind.String()) + "]")
		return
	}
	filename := blobs.Filenames[m.UploadID]
	if len(filename) == 0 {
		filename = "media"
	}

	switch m.Kind {

	case common.FileKindImage:
		div := mediaSection(&doc.Element)
		img := div.CreateElement("img")
		img.CreateAttr("src", blobURL)
		img.CreateAttr("width", "800")
		img.CreateAttr("height", "600")
		img.CreateAttr("alt", filename)

	case common.FileKindVideo:
		// inline player: server-generated thumbnail plus a link label,
		// matching the markup the platform produces for manual inserts
		outer := doc.CreateElement("div")
		outer.CreateAttr("style", "display:flex;flex-direction:column;align-items:center;justify-content:center")

		section := mediaSection(outer)
		img := section.CreateElement("img")
		img.CreateAttr("src", blobURL+"-jpg")
		img.CreateAttr("width", "800")
		img.CreateAttr("height", "600")

		span := outer.CreateElement("span")
		span.CreateText("Video: ")
		a := span.CreateElement("a")
		a.CreateAttr("href", opts.BaseURL+blobURL)
		a.CreateAttr("target", "_blank")
		a.SetText(filename)

	default:
		a := doc.CreateElement("p").CreateElement("a")
		a.CreateAttr("href", blobURL)
		a.SetText("View file")
	}
}

// mediaSection creates the image section wrapper the platform expects.
func mediaSection(parent *etree.Element) *etree.Element {
	div := parent.CreateElement("div")
	div.CreateAttr("data-section-style", "11")
	div.CreateAttr("style", "max-width:100%")
	div.CreateAttr("class", "")
	return div
}

func renderTableHTML(doc *etree.Document, t *markdown.Table) {

	table := doc.CreateElement("table")
	table.CreateAttr("border", "1")

	for i, row := range t.Rows {
		tag := "td"
		if i == 0 && t.HasHeader {
			tag = "th"
		}
		tr := table.CreateElement("tr")
		for _, cell := range row {
			appendSpans(tr.CreateElement(tag), cell)
		}
	}
}
