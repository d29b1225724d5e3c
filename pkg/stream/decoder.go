package stream

import (
	"bytes"
)

// frameDelimiter separates frames on the wire. A frame is everything up to
// (but not including) the next blank line.
var frameDelimiter = []byte("\n\n")

// dataPrefix marks the payload line inside a frame.
var dataPrefix = []byte("data:")

// Decoder incrementally splits a raw byte stream into complete frames.
//
// Bytes are buffered across Feed calls, so a frame (or a multi-byte UTF-8
// sequence inside one) may arrive split across any number of reads and is
// only surfaced once its closing delimiter has been seen. Trailing bytes
// that never receive a delimiter are held forever and discarded with the
// decoder; they are never surfaced as a frame.
type Decoder struct {
	buf []byte
}

// Feed appends a chunk to the internal buffer and returns all frames
// completed by it, in arrival order. The returned slices are copies and
// remain valid after subsequent Feed calls.
func (d *Decoder) Feed(chunk []byte) [][]byte {
	d.buf = append(d.buf, chunk...)

	var frames [][]byte
	for {
		idx := bytes.Index(d.buf, frameDelimiter)
		if idx < 0 {
			break
		}

		frame := make([]byte, idx)
		copy(frame, d.buf[:idx])
		frames = append(frames, frame)

		d.buf = d.buf[idx+len(frameDelimiter):]
	}

	return frames
}

// Buffered returns the number of bytes held back waiting for a delimiter.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Data extracts the payload of a frame: the first line carrying the
// "data:" prefix, with the prefix and surrounding whitespace stripped.
// Frames without a data line return ok=false and are skipped by callers.
func Data(frame []byte) ([]byte, bool) {
	for _, line := range bytes.Split(frame, []byte("\n")) {
		if bytes.HasPrefix(line, dataPrefix) {
			return bytes.TrimSpace(line[len(dataPrefix):]), true
		}
	}
	return nil, false
}
