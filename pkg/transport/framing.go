// Package transport implements the length-prefixed framing used for stdio
// MCP communication. Each frame is a header line of the form
//
//	Content-Length: <N>\r\n\r\n
//
// followed by exactly N bytes of UTF-8 JSON. The codec holds no partial
// frame state between calls.
package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/motormind/autoassist/pkg/errors"
)

const contentLengthHeader = "content-length:"

// FrameWriter serializes messages onto a byte stream. Writes are serialized
// so a frame is never interleaved with another writer on the same stream.
type FrameWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewFrameWriter creates a FrameWriter on top of w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriter(w)}
}

// WriteFrame serializes msg as JSON and writes one complete frame, flushing
// before returning.
func (fw *FrameWriter) WriteFrame(msg interface{}) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Internal(err, "failed to encode frame body")
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fmt.Fprintf(fw.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return errors.TransportError("write frame header", err)
	}
	if _, err := fw.w.Write(body); err != nil {
		return errors.TransportError("write frame body", err)
	}
	if err := fw.w.Flush(); err != nil {
		return errors.TransportError("flush frame", err)
	}
	return nil
}

// FrameReader decodes frames from a byte stream.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader creates a FrameReader on top of r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame reads one frame and returns its JSON body.
//
// A clean end-of-stream before any header byte returns io.EOF so callers can
// stop their read loop; end-of-stream anywhere inside a frame, a missing
// Content-Length header, or a body that is not valid JSON all return a
// protocol error.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	contentLength := -1
	sawHeaderLine := false

	for {
		line, err := fr.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && !sawHeaderLine {
				return nil, io.EOF
			}
			return nil, errors.WrapProtocol(err, "end of stream inside frame header")
		}
		sawHeaderLine = true

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		// Header keys match case-insensitively; unrecognized headers are
		// ignored.
		if strings.HasPrefix(strings.ToLower(line), contentLengthHeader) {
			value := strings.TrimSpace(line[len(contentLengthHeader):])
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, errors.ProtocolErrorf("invalid Content-Length %q", value)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, errors.ProtocolError("frame header missing Content-Length")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return nil, errors.WrapProtocol(err, "frame body shorter than Content-Length")
	}

	if !json.Valid(body) {
		return nil, errors.ProtocolError("frame body is not valid JSON")
	}
	return body, nil
}

// ReadInto reads one frame and unmarshals its body into v.
func (fr *FrameReader) ReadInto(v interface{}) error {
	body, err := fr.ReadFrame()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.WrapProtocol(err, "failed to decode frame body")
	}
	return nil
}
