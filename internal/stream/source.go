// Package stream normalizes upstream model transports into one pull-based
// sequence of text fragments.
package stream

import (
	"context"
	"fmt"
)

// Kind tags the upstream transport a Source was built from
type Kind int

const (
	// KindEventFramed is a server-sent event body of `data: <json>` records
	KindEventFramed Kind = iota
	// KindChunkIterable is a provider SDK iterator of text chunks
	KindChunkIterable
)

func (k Kind) String() string {
	switch k {
	case KindEventFramed:
		return "event-framed"
	case KindChunkIterable:
		return "chunk-iterable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source yields raw text fragments in arrival order. Fragments carry no
// alignment guarantees: a key, a brace or a UTF-8 sequence may be split
// across two of them.
//
// Next returns io.EOF once the upstream has finished cleanly. Close releases
// the upstream connection and may be called more than once.
type Source interface {
	Kind() Kind
	Next(ctx context.Context) (string, error)
	Close() error
}

// UpstreamError is an error record delivered inside the stream itself
type UpstreamError struct {
	Type    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Type == "" {
		return "upstream error: " + e.Message
	}
	return fmt.Sprintf("upstream error (%s): %s", e.Type, e.Message)
}
