package client

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	ID    string
	Event string
	// Data joins multiple "data:" lines with newlines.
	Data string
	// Retry is the reconnection interval in milliseconds; 0 when absent
	// or unparsable.
	Retry int64
}

// SSEStream incrementally parses Server-Sent Events from a byte stream.
// Events are emitted at each blank-line terminator; a non-empty trailing
// buffer at stream end is emitted as a final best-effort event.
type SSEStream struct {
	source io.ReadCloser
	buf    []byte
	chunk  []byte
	done   bool
}

// NewSSEStream wraps a body stream in an SSE parser.
func NewSSEStream(source io.ReadCloser) *SSEStream {
	return &SSEStream{
		source: source,
		chunk:  make([]byte, 4096),
	}
}

// Next returns the next event, or io.EOF when the stream is finished.
func (s *SSEStream) Next() (*SSEEvent, error) {
	for {
		if evt, ok := s.takeBufferedEvent(); ok {
			return evt, nil
		}
		if s.done {
			if len(s.buf) > 0 {
				raw := s.buf
				s.buf = nil
				return parseSSEEvent(raw), nil
			}
			return nil, io.EOF
		}

		n, err := s.source.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
		}
		if err == io.EOF {
			s.done = true
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close releases the underlying stream.
func (s *SSEStream) Close() error {
	return s.source.Close()
}

// takeBufferedEvent drains one complete event (terminated by \n\n or
// \r\n\r\n) from the buffer.
func (s *SSEStream) takeBufferedEvent() (*SSEEvent, bool) {
	lfPos := bytes.Index(s.buf, []byte("\n\n"))
	crlfPos := bytes.Index(s.buf, []byte("\r\n\r\n"))

	pos, width := lfPos, 2
	if crlfPos >= 0 && (lfPos < 0 || crlfPos < lfPos) {
		pos, width = crlfPos, 4
	}
	if pos < 0 {
		return nil, false
	}

	raw := s.buf[:pos]
	s.buf = s.buf[pos+width:]
	return parseSSEEvent(raw), true
}

// parseSSEEvent parses a raw event block into its fields. Comment lines
// and unknown fields are ignored; a single leading space after the colon
// is stripped.
func parseSSEEvent(raw []byte) *SSEEvent {
	evt := &SSEEvent{}

	var dataParts []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || line[0] == ':' {
			continue
		}

		field := line
		value := ""
		if pos := strings.IndexByte(line, ':'); pos >= 0 {
			field = line[:pos]
			value = line[pos+1:]
			if strings.HasPrefix(value, " ") {
				value = value[1:]
			}
		}

		switch field {
		case "id":
			evt.ID = value
		case "event":
			evt.Event = value
		case "data":
			dataParts = append(dataParts, value)
		case "retry":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				evt.Retry = n
			}
		}
	}

	evt.Data = strings.Join(dataParts, "\n")
	return evt
}
