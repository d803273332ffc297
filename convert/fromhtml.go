package convert

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"go.uber.org/zap"
)

// blobURLPattern matches platform blob locations: /blob/<thread>/<id>,
// absolute or path-only, optionally followed by a query string.
var blobURLPattern = regexp.MustCompile(`/blob/[^/]+/([^/?]+)`)

// BlobMap accumulates blob id to synthesized filename assignments in
// discovery order. Duplicate ids collapse to one entry, so a thumbnail and
// its full-size original share a filename.
type BlobMap struct {
	order []string
	names map[string]string
}

func (m *BlobMap) add(id, name string) {
	if m.names == nil {
		m.names = make(map[string]string)
	}
	if _, ok := m.names[id]; !ok {
		m.order = append(m.order, id)
	}
	m.names[id] = name
}

// Name returns the filename assigned to a blob id.
func (m *BlobMap) Name(id string) (string, bool) {
	name, ok := m.names[id]
	return name, ok
}

// IDs returns blob ids in discovery order.
func (m *BlobMap) IDs() []string { return m.order }

func (m *BlobMap) Len() int { return len(m.order) }

// FromHTML converts pulled document HTML into Markdown. mediaDir is the
// label used in emitted media links, typically the document's media
// directory name. Alongside the Markdown it returns the blob map naming
// every referenced blob, so the caller can download them to matching files.
func FromHTML(content string, mediaDir string, log *zap.Logger) (string, *BlobMap, error) {

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", nil, fmt.Errorf("unable to parse document HTML: %w", err)
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		body = doc
	}

	blobs := &BlobMap{}
	var lines []string

	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if md := elementToMarkdown(n, mediaDir, blobs); len(md) > 0 {
			lines = append(lines, md)
		}
	}

	log.Debug("converted document HTML",
		zap.Int("lines", len(lines)), zap.Int("blobs", blobs.Len()))

	return strings.Join(lines, "\n"), blobs, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func elementToMarkdown(n *html.Node, mediaDir string, blobs *BlobMap) string {

	switch n.DataAtom {

	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		return strings.Repeat("#", level) + " " + strings.TrimSpace(nodeText(n)) + "\n"

	case atom.P:
		return extractFormattedText(n, mediaDir, blobs) + "\n"

	case atom.Ul:
		var items []string
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type == html.ElementNode && li.DataAtom == atom.Li {
				items = append(items, "- "+extractFormattedText(li, mediaDir, blobs))
			}
		}
		return strings.Join(items, "\n") + "\n"

	case atom.Ol:
		var items []string
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type == html.ElementNode && li.DataAtom == atom.Li {
				items = append(items, fmt.Sprintf("%d. %s", len(items)+1, extractFormattedText(li, mediaDir, blobs)))
			}
		}
		return strings.Join(items, "\n") + "\n"

	case atom.Pre:
		return "```\n" + nodeText(n) + "\n```\n"

	case atom.Img:
		return imgToMarkdown(n, mediaDir, blobs) + "\n"

	case atom.Div:
		// a div containing a blob link is the inline video player
		if link := findBlobLink(n); link != nil {
			if m := blobURLPattern.FindStringSubmatch(attrValue(link, "href")); m != nil {
				blobID := m[1]
				filename := fmt.Sprintf("video_%s.mp4", clip(blobID, 12))
				blobs.add(blobID, filename)
				return fmt.Sprintf("![](%s/%s)\n", mediaDir, filename)
			}
		}
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				sb.WriteString(elementToMarkdown(c, mediaDir, blobs))
			}
		}
		return sb.String()
	}
	return ""
}

func findBlobLink(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.A &&
		blobURLPattern.MatchString(attrValue(n, "href")) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findBlobLink(c); found != nil {
			return found
		}
	}
	return nil
}

// imgToMarkdown emits a media link for an image tag. Blob-hosted images get
// a deterministic synthesized filename derived from the blob id; anything
// else keeps its source URL.
func imgToMarkdown(n *html.Node, mediaDir string, blobs *BlobMap) string {

	src := attrValue(n, "src")
	m := blobURLPattern.FindStringSubmatch(src)
	if m == nil {
		return fmt.Sprintf("![](%s)", src)
	}
	// thumbnails carry a -jpg suffix on the original blob's id
	blobID := strings.TrimSuffix(m[1], "-jpg")
	filename := fmt.Sprintf("image_%s.png", clip(blobID, 12))
	blobs.add(blobID, filename)
	return fmt.Sprintf("![](%s/%s)", mediaDir, filename)
}

// extractFormattedText walks children emitting inline Markdown: bold,
// italic, code, links and inline images. Unknown elements are recursed into
// so their text is not lost.
func extractFormattedText(n *html.Node, mediaDir string, blobs *BlobMap) string {

	var sb strings.Builder

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type != html.ElementNode:
			// comments and the like
		case c.DataAtom == atom.B || c.DataAtom == atom.Strong:
			sb.WriteString("**" + nodeText(c) + "**")
		case c.DataAtom == atom.I || c.DataAtom == atom.Em:
			sb.WriteString("*" + nodeText(c) + "*")
		case c.DataAtom == atom.Code:
			sb.WriteString("`" + nodeText(c) + "`")
		case c.DataAtom == atom.A:
			sb.WriteString(fmt.Sprintf("[%s](%s)", nodeText(c), attrValue(c, "href")))
		case c.DataAtom == atom.Img:
			sb.WriteString(imgToMarkdown(c, mediaDir, blobs))
		default:
			sb.WriteString(extractFormattedText(c, mediaDir, blobs))
		}
	}
	return sb.String()
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
