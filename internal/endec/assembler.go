// Package endec handles the serial side of a Sage ENDEC: opening the device
// and carving its news-feed stream into discrete alert blocks.
package endec

import "strings"

// Framing markers the ENDEC prints around each news-feed block.
const (
	StartMarker = "<ENDECSTART>"
	EndMarker   = "<ENDECEND>"
)

// Block is one alert's worth of lines, collected between markers. Blank
// lines are already dropped and each line is trimmed.
type Block struct {
	Lines []string
}

type assemblerState int

const (
	stateScanning assemblerState = iota
	stateCollecting
)

// Assembler is the framing state machine. While scanning it discards input
// until a start marker appears; while collecting it buffers lines until the
// end marker closes the block. Not safe for concurrent use; the pipeline
// feeds it from a single reader goroutine.
type Assembler struct {
	state assemblerState
	lines []string
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Collecting reports whether a block is currently open.
func (a *Assembler) Collecting() bool {
	return a.state == stateCollecting
}

// Feed consumes one line and returns the blocks it completed. A single line
// can close one block and open the next, so more than one block can come
// back. Text on the marker line belongs to the block on its side of the
// marker.
func (a *Assembler) Feed(line string) []Block {
	var out []Block
	rest := line
	for {
		if a.state == stateScanning {
			i := strings.Index(rest, StartMarker)
			if i < 0 {
				return out
			}
			a.state = stateCollecting
			a.lines = nil
			rest = rest[i+len(StartMarker):]
			continue
		}

		start := strings.Index(rest, StartMarker)
		end := strings.Index(rest, EndMarker)
		switch {
		case end >= 0 && (start < 0 || end < start):
			a.buffer(rest[:end])
			if b, ok := a.emit(); ok {
				out = append(out, b)
			}
			a.state = stateScanning
			rest = rest[end+len(EndMarker):]
		case start >= 0:
			// A new block opened before the old one closed. The old block
			// lost its end marker somewhere; emit what we have instead of
			// letting the buffer grow without bound.
			a.buffer(rest[:start])
			if b, ok := a.emit(); ok {
				out = append(out, b)
			}
			rest = rest[start+len(StartMarker):]
		default:
			a.buffer(rest)
			return out
		}
	}
}

// Flush force-emits whatever is buffered and returns to scanning. The
// pipeline calls it when a read times out mid-block; a truncated alert is
// worth more than a swallowed one.
func (a *Assembler) Flush() (Block, bool) {
	if a.state != stateCollecting {
		return Block{}, false
	}
	a.state = stateScanning
	return a.emit()
}

func (a *Assembler) buffer(s string) {
	if t := strings.TrimSpace(s); t != "" {
		a.lines = append(a.lines, t)
	}
}

// emit hands out the buffered lines and resets the buffer. Empty blocks are
// discarded here so callers never see them.
func (a *Assembler) emit() (Block, bool) {
	lines := a.lines
	a.lines = nil
	if len(lines) == 0 {
		return Block{}, false
	}
	return Block{Lines: lines}, true
}
