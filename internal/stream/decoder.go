// Package stream decodes the chat backend's server-sent event stream into a
// growing answer string.
package stream

import (
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	deltaPath    = "choices.0.delta.content"

	// DefaultReadBufferSize is the chunk size ReadFrom uses when none is set.
	DefaultReadBufferSize = 4096
)

// lineState tracks whether the head of the buffer may be consumed.
type lineState int

const (
	// lineReady means complete lines at the head of the buffer can be parsed.
	lineReady lineState = iota
	// awaitingMore means the head line failed to parse and was pushed back;
	// nothing is consumed until more bytes arrive.
	awaitingMore
)

type frameResult int

const (
	frameSkipped frameResult = iota
	frameData
	frameDone
	frameIncomplete
)

// DeltaFunc receives each non-empty delta together with the answer so far.
type DeltaFunc func(delta, answer string)

// Decoder reassembles an answer from "data: " frames whose JSON payload
// carries choices[0].delta.content. It is an io.Writer; feed it body chunks
// of any size and call Flush at end of input.
//
// A Decoder belongs to a single response and is not safe for concurrent use.
type Decoder struct {
	// ReadBufferSize is the chunk size used by ReadFrom.
	ReadBufferSize int

	utf8    *encoding.Decoder
	pending []byte // undecoded tail, at most one partial rune
	buffer  string // decoded text not yet consumed as lines
	state   lineState

	answer  strings.Builder
	deltas  int
	done    bool
	onDelta DeltaFunc
}

// NewDecoder creates a decoder. onDelta may be nil.
func NewDecoder(onDelta DeltaFunc) *Decoder {
	return &Decoder{
		ReadBufferSize: DefaultReadBufferSize,
		utf8:           unicode.UTF8.NewDecoder(),
		onDelta:        onDelta,
	}
}

// Write decodes p and consumes every complete line it can. It never returns
// an error; malformed frames wait in the buffer for more bytes.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buffer += d.decode(p, false)
	d.state = lineReady

	for d.state == lineReady {
		idx := strings.IndexByte(d.buffer, '\n')
		if idx < 0 {
			break
		}
		line := d.buffer[:idx]
		d.buffer = d.buffer[idx+1:]

		switch d.processLine(line) {
		case frameDone:
			d.done = true
			return len(p), nil
		case frameIncomplete:
			d.buffer = line + "\n" + d.buffer
			d.state = awaitingMore
		}
	}
	return len(p), nil
}

// Flush finishes decoding and processes every line still buffered. A
// trailing [DONE] is skipped and payloads that fail to parse are dropped.
func (d *Decoder) Flush() {
	d.buffer += d.decode(nil, true)
	rest := d.buffer
	d.buffer = ""
	d.state = lineReady

	if strings.TrimSpace(rest) == "" {
		return
	}
	for _, line := range strings.Split(rest, "\n") {
		if line == "" {
			continue
		}
		if d.processLine(line) == frameDone {
			d.done = true
		}
	}
}

// ReadFrom pumps r through the decoder until EOF and then flushes. A read
// error other than io.EOF is returned without flushing.
func (d *Decoder) ReadFrom(r io.Reader) (int64, error) {
	size := d.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	buf := make([]byte, size)

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			d.Write(buf[:n])
		}
		if err == io.EOF {
			d.Flush()
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Text returns the answer accumulated so far.
func (d *Decoder) Text() string {
	return d.answer.String()
}

// Deltas returns how many non-empty deltas were appended.
func (d *Decoder) Deltas() int {
	return d.deltas
}

// Done reports whether a [DONE] frame has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Pending returns decoded text that has not been consumed yet.
func (d *Decoder) Pending() string {
	return d.buffer
}

func (d *Decoder) processLine(line string) frameResult {
	line = strings.TrimSuffix(line, "\r")
	if strings.HasPrefix(line, ":") || strings.TrimSpace(line) == "" {
		return frameSkipped
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return frameSkipped
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneSentinel {
		return frameDone
	}
	if !gjson.Valid(payload) {
		return frameIncomplete
	}

	delta := gjson.Get(payload, deltaPath)
	if delta.Type != gjson.String || delta.Str == "" {
		return frameSkipped
	}
	d.answer.WriteString(delta.Str)
	d.deltas++
	if d.onDelta != nil {
		d.onDelta(delta.Str, d.answer.String())
	}
	return frameData
}

// decode converts bytes to text, holding back a rune split across writes.
// At EOF a dangling partial rune becomes U+FFFD.
func (d *Decoder) decode(p []byte, atEOF bool) string {
	src := append(d.pending, p...)
	d.pending = nil
	if len(src) == 0 {
		return ""
	}

	var out strings.Builder
	dst := make([]byte, 3*len(src)+4)
	for {
		nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return out.String()
		case transform.ErrShortDst:
			dst = make([]byte, 2*len(dst))
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			// the UTF-8 decoder replaces bad input rather than failing
			return out.String()
		}
	}
}
