package markdown

import (
	"fmt"
	"regexp"

	"dsc/common"
)

var (
	// standard markdown embed: ![alt](target)
	imageRefPattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^\)]+)\)`)
	// wikilink embed: ![[name]]
	wikilinkRefPattern = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)
)

// MediaReference is a single embedded media reference found in source text.
// OriginalRef keeps the matched text verbatim - it is the key callers use
// when supplying a MediaMap.
type MediaReference struct {
	OriginalRef string
	Target      string // path or filename inside the reference
	Alt         string // empty for wikilinks
	Kind        common.FileKind
}

// ExtractMediaRefs finds every media reference in text, wikilinks first.
// The kind is inferred from the target's extension.
func ExtractMediaRefs(text string) []MediaReference {

	var refs []MediaReference

	for _, m := range wikilinkRefPattern.FindAllStringSubmatch(text, -1) {
		refs = append(refs, MediaReference{
			OriginalRef: m[0],
			Target:      m[1],
			Kind:        common.FileKindFromName(m[1]),
		})
	}
	for _, m := range imageRefPattern.FindAllStringSubmatch(text, -1) {
		refs = append(refs, MediaReference{
			OriginalRef: m[0],
			Target:      m[2],
			Alt:         m[1],
			Kind:        common.FileKindFromName(m[2]),
		})
	}
	return refs
}

// parseLineMedia turns every media reference on a line into a block: an
// uploaded media block when the map resolves it, an external image block for
// http(s) targets, and a camera callout otherwise. Standard markdown embeds
// are emitted before wikilinks. Text surrounding the references is dropped.
func parseLineMedia(line string, media MediaMap) []Block {

	var blocks []Block

	for _, m := range imageRefPattern.FindAllStringSubmatch(line, -1) {
		alt, target := m[1], m[2]
		if res, ok := media[m[0]]; ok {
			blocks = append(blocks, resolveMedia(res, fmt.Sprintf("Media: %s (alt: %s)", target, alt)))
		} else if hasURLPrefix(target) {
			blocks = append(blocks, externalImage(target))
		} else {
			blocks = append(blocks, mediaCallout(fmt.Sprintf("Image: %s (alt: %s)", target, alt)))
		}
	}

	for _, m := range wikilinkRefPattern.FindAllStringSubmatch(line, -1) {
		filename := m[1]
		if res, ok := media[m[0]]; ok {
			blocks = append(blocks, resolveMedia(res, "Media: "+filename))
		} else {
			blocks = append(blocks, mediaCallout("Image: "+filename))
		}
	}
	return blocks
}

// resolveMedia builds a block from one resolution entry: uploaded file,
// external URL, or - when the entry carries neither - a callout so the
// conversion degrades instead of failing.
func resolveMedia(res MediaResolution, calloutText string) Block {
	switch {
	case len(res.UploadID) > 0:
		return Block{
			Kind:  BlockMedia,
			Media: &Media{Kind: res.Kind, UploadID: res.UploadID},
		}
	case hasURLPrefix(res.URL):
		return externalImage(res.URL)
	default:
		return mediaCallout(calloutText)
	}
}

func externalImage(url string) Block {
	return Block{
		Kind:  BlockMedia,
		Media: &Media{Kind: common.FileKindImage, ExternalURL: url},
	}
}

const calloutIcon = "\U0001F4F7" // camera emoji

func mediaCallout(text string) Block {
	return Block{
		Kind:    BlockCallout,
		Callout: &Callout{Text: calloutIcon + " " + text, Icon: calloutIcon},
	}
}
