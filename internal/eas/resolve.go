package eas

import "strings"

// Alert is one resolved alert block: the human-readable text with any header
// span removed, plus the parsed header when one was recovered. ID is
// assigned when the alert enters the dispatch path, not here.
type Alert struct {
	ID     string
	Text   string
	Header *Header
}

// ResolveBlock produces the alert for one assembled block of serial lines.
//
// It first looks for a header occupying a whole line. Failing that, it
// concatenates the lines with no separator and searches for the grammar
// anywhere in the result, which recovers headers the ENDEC split mid-field
// across two lines or buried inside surrounding text. The message body is
// whatever falls outside the header's span. A block with no header at all
// is passed through as plain text.
//
// The second return is false when there is nothing worth dispatching.
func (p *Parser) ResolveBlock(lines []string) (Alert, bool) {
	for i, line := range lines {
		header, err := p.Parse(line)
		if err != nil {
			continue
		}
		rest := make([]string, 0, len(lines)-1)
		rest = append(rest, lines[:i]...)
		rest = append(rest, lines[i+1:]...)
		return finish(strings.Join(rest, " "), header)
	}

	joined := strings.Join(lines, "")
	if span := headerSearchRE.FindStringIndex(joined); span != nil {
		header := p.build(headerSearchRE.FindStringSubmatch(joined))
		return finish(bodyOutsideSpan(lines, span[0], span[1]), header)
	}

	return finish(strings.Join(lines, " "), nil)
}

// bodyOutsideSpan rebuilds the message body from the fragments of each line
// that fall outside [start, end) in the no-separator concatenation of lines.
// A header split across two lines leaves its line remainders intact this
// way, even when the split lands mid-field.
func bodyOutsideSpan(lines []string, start, end int) string {
	var fragments []string
	offset := 0
	for _, line := range lines {
		lineStart, lineEnd := offset, offset+len(line)
		offset = lineEnd

		if lineEnd <= start || lineStart >= end {
			if line != "" {
				fragments = append(fragments, line)
			}
			continue
		}
		if start > lineStart {
			if left := strings.TrimSpace(line[:start-lineStart]); left != "" {
				fragments = append(fragments, left)
			}
		}
		if end < lineEnd {
			if right := strings.TrimSpace(line[end-lineStart:]); right != "" {
				fragments = append(fragments, right)
			}
		}
	}
	return strings.Join(fragments, " ")
}

func finish(text string, header *Header) (Alert, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		if header == nil {
			return Alert{}, false
		}
		// Headerless ENDEC blocks still carry prose; a header-only block
		// carries none, so fall back to the event name as the body.
		text = header.EventName
	}
	return Alert{Text: text, Header: header}, true
}
