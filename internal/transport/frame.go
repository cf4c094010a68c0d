package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Framing selects how inbound bytes are split into JSON documents.
type Framing string

const (
	// FramingRaw treats every successful read as one complete document.
	FramingRaw Framing = "raw"
	// FramingLine splits newline-delimited documents and reassembles them across reads.
	FramingLine Framing = "line"
	// FramingLength uses a magic header followed by a big-endian uint16 payload length.
	FramingLength Framing = "length"
)

const maxBufferedFrameBytes = 1 << 20

var frameHeader = [2]byte{0x94, 0xC3}

// ErrFrameTooLarge is returned when a partial frame outgrows the reassembly buffer.
var ErrFrameTooLarge = errors.New("frame exceeds reassembly buffer")

// Codec encodes outbound commands and splits inbound bytes into payloads.
type Codec interface {
	Framing() Framing
	Encode(payload []byte) ([]byte, error)
	// Feed appends a received chunk and returns every payload completed by it.
	Feed(chunk []byte) ([][]byte, error)
	// Pending reports how many bytes are buffered for an incomplete payload.
	Pending() int
}

func ParseFraming(raw string) (Framing, error) {
	switch Framing(strings.ToLower(strings.TrimSpace(raw))) {
	case FramingRaw, "":
		return FramingRaw, nil
	case FramingLine:
		return FramingLine, nil
	case FramingLength:
		return FramingLength, nil
	default:
		return "", fmt.Errorf("unsupported framing: %q", raw)
	}
}

func NewCodec(framing Framing) (Codec, error) {
	switch framing {
	case FramingRaw, "":
		return rawCodec{}, nil
	case FramingLine:
		return &lineCodec{}, nil
	case FramingLength:
		return &lengthCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported framing: %q", framing)
	}
}

type rawCodec struct{}

func (rawCodec) Framing() Framing { return FramingRaw }

func (rawCodec) Encode(payload []byte) ([]byte, error) {
	return payload, nil
}

func (rawCodec) Feed(chunk []byte) ([][]byte, error) {
	if len(chunk) == 0 {
		return nil, nil
	}

	return [][]byte{append([]byte(nil), chunk...)}, nil
}

func (rawCodec) Pending() int { return 0 }

type lineCodec struct {
	buf []byte
}

func (c *lineCodec) Framing() Framing { return FramingLine }

func (c *lineCodec) Encode(payload []byte) ([]byte, error) {
	if bytes.HasSuffix(payload, []byte{'\n'}) {
		return payload, nil
	}

	return append(append([]byte(nil), payload...), '\n'), nil
}

func (c *lineCodec) Feed(chunk []byte) ([][]byte, error) {
	c.buf = append(c.buf, chunk...)

	var out [][]byte
	for {
		idx := bytes.IndexByte(c.buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(c.buf[:idx], "\r")
		if len(bytes.TrimSpace(line)) > 0 {
			out = append(out, append([]byte(nil), line...))
		}
		c.buf = c.buf[idx+1:]
	}

	if len(c.buf) > maxBufferedFrameBytes {
		dropped := len(c.buf)
		c.buf = nil

		return out, fmt.Errorf("%w: dropped %d bytes", ErrFrameTooLarge, dropped)
	}

	return out, nil
}

func (c *lineCodec) Pending() int { return len(c.buf) }

type lengthCodec struct {
	buf []byte
}

func (c *lengthCodec) Framing() Framing { return FramingLength }

func (c *lengthCodec) Encode(payload []byte) ([]byte, error) {
	return encodeFrame(payload)
}

func (c *lengthCodec) Feed(chunk []byte) ([][]byte, error) {
	c.buf = append(c.buf, chunk...)

	var (
		out  [][]byte
		errs []error
	)
	for {
		payload, rest, err := nextFrame(c.buf)
		c.buf = rest
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if payload == nil {
			break
		}
		out = append(out, payload)
	}

	return out, errors.Join(errs...)
}

func (c *lengthCodec) Pending() int { return len(c.buf) }

func encodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > math.MaxUint16 {
		return nil, fmt.Errorf("payload too large: %d", len(payload))
	}

	frame := make([]byte, 4+len(payload))
	frame[0] = frameHeader[0]
	frame[1] = frameHeader[1]
	// #nosec G115 -- length is bounded by math.MaxUint16 above.
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[4:], payload)

	return frame, nil
}

// nextFrame extracts one frame from buf. A nil payload with nil error means
// more bytes are needed; rest is what remains buffered in every case.
func nextFrame(buf []byte) (payload, rest []byte, err error) {
	start := resyncToHeader(buf)
	if start < 0 {
		// Keep a trailing first header byte: the second one may arrive in the next read.
		if n := len(buf); n > 0 && buf[n-1] == frameHeader[0] {
			return nil, buf[n-1:], nil
		}

		return nil, nil, nil
	}
	buf = buf[start:]
	if len(buf) < 4 {
		return nil, buf, nil
	}

	ln := int(binary.BigEndian.Uint16(buf[2:4]))
	if ln == 0 {
		return nil, buf[4:], fmt.Errorf("invalid frame length: %d", ln)
	}
	if len(buf) < 4+ln {
		return nil, buf, nil
	}

	return append([]byte(nil), buf[4:4+ln]...), buf[4+ln:], nil
}

func resyncToHeader(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == frameHeader[0] && buf[i+1] == frameHeader[1] {
			return i
		}
	}

	return -1
}
