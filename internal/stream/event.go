package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
	readSize     = 4096
)

// EventFramed reads a server-sent event body and yields the text of every
// content_block_delta record.
type EventFramed struct {
	body    io.ReadCloser
	lines   LineReassembler
	pending []string
	buf     []byte
	eof     bool
	done    bool

	closeOnce sync.Once
	closeErr  error
}

// NewEventFramed wraps an event stream body. The Source owns body.
func NewEventFramed(body io.ReadCloser) *EventFramed {
	return &EventFramed{
		body: body,
		buf:  make([]byte, readSize),
	}
}

// Kind returns KindEventFramed
func (s *EventFramed) Kind() Kind {
	return KindEventFramed
}

// Next returns the next non-empty text delta. A blocked read is interrupted
// by closing the body when ctx is done.
func (s *EventFramed) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		for len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]

			text, end, err := parseRecord(line)
			if err != nil {
				s.done = true
				return "", err
			}
			if end {
				s.done = true
				return "", io.EOF
			}
			if text != "" {
				return text, nil
			}
		}

		if s.eof {
			s.done = true
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.lines.Push(string(s.buf[:n]))...)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			if errors.Is(err, io.EOF) {
				s.eof = true
				if tail := s.lines.Flush(); tail != "" {
					s.pending = append(s.pending, tail)
				}
				continue
			}
			s.done = true
			return "", fmt.Errorf("read event stream: %w", err)
		}
	}
}

// Close releases the body
func (s *EventFramed) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// eventRecord is the subset of an Anthropic streaming event we inspect
type eventRecord struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseRecord interprets one event line. Lines that are not data records,
// and data records that fail to decode, yield nothing.
func parseRecord(line string) (text string, end bool, err error) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false, nil
	}
	data := strings.TrimSpace(line[len(dataPrefix):])
	if data == doneSentinel {
		return "", true, nil
	}

	var rec eventRecord
	if json.Unmarshal([]byte(data), &rec) != nil {
		return "", false, nil
	}

	switch rec.Type {
	case "content_block_delta":
		if rec.Delta != nil {
			return rec.Delta.Text, false, nil
		}
	case "error":
		ue := &UpstreamError{Message: "unspecified"}
		if rec.Error != nil {
			ue.Type = rec.Error.Type
			ue.Message = rec.Error.Message
		}
		return "", false, ue
	}
	return "", false, nil
}
