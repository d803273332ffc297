package markdown

import (
	"strings"
)

// TokenizeSpans splits a line of text into styled spans. The scan is a single
// left-to-right pass: at every position a bare URL is tried first, then a
// markdown hyperlink, then bold, italic and inline code. Bold is checked
// before italic so "**" is never misread as two italic delimiters. An
// unmatched delimiter is left in the text as-is.
//
// Media references are stripped first - they become standalone blocks, not
// inline content. A line that was nothing but media yields a single space
// span so the caller never produces an empty rich text run.
func TokenizeSpans(text string) []Span {

	text = imageRefPattern.ReplaceAllString(text, "")
	text = wikilinkRefPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if len(text) == 0 {
		return []Span{{Text: " "}}
	}

	var spans []Span

	for i := 0; i < len(text); {

		if hasURLPrefix(text[i:]) {
			url, next := scanBareURL(text, i)
			spans = append(spans, Span{Text: url, Link: url})
			i = next
			continue
		}

		if text[i] == '[' {
			if span, next, ok := scanLink(text, i); ok {
				spans = append(spans, span)
				i = next
				continue
			}
		}

		if strings.HasPrefix(text[i:], "**") || strings.HasPrefix(text[i:], "__") {
			delim := text[i : i+2]
			if end := strings.Index(text[i+2:], delim); end != -1 {
				end += i + 2
				spans = append(spans, Span{Text: text[i+2 : end], Annot: Annotations{Bold: true}})
				i = end + 2
				continue
			}
		} else if isItalicDelim(text[i]) && (i == 0 || !isItalicDelim(text[i-1])) {
			// reject a closing delimiter glued to another delimiter char,
			// otherwise "**bold**" would parse as nested italics
			delim := text[i]
			end := i + 1
			for end < len(text) {
				if text[end] == delim && (end+1 >= len(text) || !isItalicDelim(text[end+1])) {
					break
				}
				end++
			}
			if end < len(text) && text[end] == delim {
				spans = append(spans, Span{Text: text[i+1 : end], Annot: Annotations{Italic: true}})
				i = end + 1
				continue
			}
		} else if text[i] == '`' {
			if end := strings.IndexByte(text[i+1:], '`'); end != -1 {
				end += i + 1
				spans = append(spans, Span{Text: text[i+1 : end], Annot: Annotations{Code: true}})
				i = end + 1
				continue
			}
		}

		// plain run up to the next character that could start formatting
		next := len(text)
		for j := i + 1; j < len(text); j++ {
			if c := text[j]; c == '*' || c == '_' || c == '`' || c == '[' {
				next = j
				break
			}
			if hasURLPrefix(text[j:]) {
				next = j
				break
			}
		}
		if i < next {
			spans = append(spans, Span{Text: text[i:next]})
		}
		if next > i {
			i = next
		} else {
			i++
		}
	}

	if len(spans) == 0 {
		return []Span{{Text: text}}
	}
	return spans
}

func isItalicDelim(c byte) bool {
	return c == '*' || c == '_'
}

func hasURLPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// scanBareURL consumes a URL up to the first whitespace, then drops trailing
// punctuation that is most likely sentence syntax rather than URL.
func scanBareURL(text string, start int) (string, int) {

	end := start
	for end < len(text) {
		switch text[end] {
		case ' ', '\n', '\t', '\r':
			goto done
		}
		end++
	}
done:
	for end > start && strings.ContainsRune(".,!?)];:", rune(text[end-1])) {
		end--
	}
	return text[start:end], end
}

// scanLink matches "[text](url)" at start. It does not consume anything on
// failure - the bracket then falls through to the plain text scan.
func scanLink(text string, start int) (Span, int, bool) {

	closeBracket := strings.IndexByte(text[start+1:], ']')
	if closeBracket == -1 {
		return Span{}, 0, false
	}
	closeBracket += start + 1
	if closeBracket+1 >= len(text) || text[closeBracket+1] != '(' {
		return Span{}, 0, false
	}
	closeParen := strings.IndexByte(text[closeBracket+2:], ')')
	if closeParen == -1 {
		return Span{}, 0, false
	}
	closeParen += closeBracket + 2

	return Span{
		Text: text[start+1 : closeBracket],
		Link: text[closeBracket+2 : closeParen],
	}, closeParen + 1, true
}
