// Package markdown implements the document model and the Markdown side of
// the conversion engine: a line-oriented block parser, an inline span
// tokenizer and media reference resolution. The package is pure - it performs
// no I/O and keeps no state between calls, so independent documents can be
// parsed concurrently.
package markdown

import (
	"dsc/common"
)

// Kind of a structural document unit.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
	BlockCode
	BlockBullet
	BlockNumbered
	BlockTable
	BlockMedia
	BlockCallout
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockParagraph:
		return "paragraph"
	case BlockCode:
		return "code"
	case BlockBullet:
		return "bulleted_list_item"
	case BlockNumbered:
		return "numbered_list_item"
	case BlockTable:
		return "table"
	case BlockMedia:
		return "media"
	case BlockCallout:
		return "callout"
	default:
		// this should never happen
		panic("unknown block kind")
	}
}

// Annotations is the set of inline styles carried by a span. The set itself
// is unordered - renderers apply a fixed nesting order.
type Annotations struct {
	Bold          bool
	Italic        bool
	Code          bool
	Strikethrough bool
	Underline     bool
}

// IsZero reports whether no annotation is set.
func (a Annotations) IsZero() bool {
	return !a.Bold && !a.Italic && !a.Code && !a.Strikethrough && !a.Underline
}

// Span is a run of text with optional styling and an optional hyperlink.
type Span struct {
	Text  string
	Annot Annotations
	Link  string // empty when the run is not a link
}

// Heading levels are clamped to what every target platform supports.
type Heading struct {
	Level int // 1..3
	Text  []Span
}

type Paragraph struct {
	Text []Span
}

type Code struct {
	Language string
	Content  string
}

// ListItem is a single bullet or numbered item. Items are deliberately not
// grouped into lists - both target platforms treat list items as standalone
// blocks.
type ListItem struct {
	Text []Span
}

// TableCell is one cell worth of rich text.
type TableCell []Span

// Table invariant: Width is the header column count and every row in Rows
// has exactly Width cells. When HasHeader is set the first row is the header.
type Table struct {
	Width     int
	HasHeader bool
	Rows      [][]TableCell
}

// Media references an uploaded file (UploadID set) or an external location
// (ExternalURL set), never both. FileURL carries a platform-hosted download
// location when the block came from a remote document rather than source
// text.
type Media struct {
	Kind        common.FileKind
	UploadID    string
	ExternalURL string
	FileURL     string
}

// Callout is a visually distinct placeholder block, used when media cannot
// be resolved so conversion never fails outright.
type Callout struct {
	Text string
	Icon string
}

// Block is a closed tagged variant - exactly one of the pointer fields
// matching Kind is set. Renderers must switch over Kind exhaustively, an
// unknown kind is a programming error.
type Block struct {
	Kind BlockKind

	Heading   *Heading
	Paragraph *Paragraph
	Code      *Code
	Bullet    *ListItem
	Numbered  *ListItem
	Table     *Table
	Media     *Media
	Callout   *Callout
}

// PlainText flattens spans dropping all styling.
func PlainText(spans []Span) string {
	var out string
	for _, s := range spans {
		out += s.Text
	}
	return out
}

// MediaResolution is one caller-supplied resolution entry. Either UploadID
// (with Kind) or URL is set; the zero value means "unresolved".
type MediaResolution struct {
	UploadID string
	Kind     common.FileKind
	URL      string
}

// MediaMap maps verbatim source reference text, for example "![[shot.png]]"
// or "![alt](img/shot.png)", to its resolution.
type MediaMap map[string]MediaResolution
