package stream

import (
	"context"
	"io"
	"iter"
	"sync"
)

// ChunkFunc returns the text of the next upstream chunk, or io.EOF
type ChunkFunc func(ctx context.Context) (string, error)

// ChunkIterable adapts a provider SDK iterator. Empty chunks (role headers,
// usage trailers) are skipped.
type ChunkIterable struct {
	next   ChunkFunc
	closer func() error
	done   bool

	closeOnce sync.Once
	closeErr  error
}

// NewChunkIterable builds a Source from a chunk function. closer may be nil.
func NewChunkIterable(next ChunkFunc, closer func() error) *ChunkIterable {
	return &ChunkIterable{next: next, closer: closer}
}

// Kind returns KindChunkIterable
func (s *ChunkIterable) Kind() Kind {
	return KindChunkIterable
}

// Next returns the next non-empty chunk
func (s *ChunkIterable) Next(ctx context.Context) (string, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := s.next(ctx)
		if err != nil {
			s.done = true
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", io.EOF
}

// Close stops the upstream iterator
func (s *ChunkIterable) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}

// FromSeq adapts a push iterator. Close stops the iterator goroutine.
func FromSeq(seq iter.Seq2[string, error]) *ChunkIterable {
	next, stop := iter.Pull2(seq)
	return NewChunkIterable(func(context.Context) (string, error) {
		text, err, ok := next()
		if !ok {
			return "", io.EOF
		}
		return text, err
	}, func() error {
		stop()
		return nil
	})
}

// FromSlice yields the given chunks in order
func FromSlice(chunks ...string) *ChunkIterable {
	i := 0
	return NewChunkIterable(func(context.Context) (string, error) {
		if i >= len(chunks) {
			return "", io.EOF
		}
		i++
		return chunks[i-1], nil
	}, nil)
}

type prepended struct {
	head string
	sent bool
	src  Source
}

// Prepend yields head before any fragment of src
func Prepend(head string, src Source) Source {
	return &prepended{head: head, src: src}
}

func (p *prepended) Kind() Kind {
	return p.src.Kind()
}

func (p *prepended) Next(ctx context.Context) (string, error) {
	if !p.sent {
		p.sent = true
		if p.head != "" {
			return p.head, nil
		}
	}
	return p.src.Next(ctx)
}

func (p *prepended) Close() error {
	return p.src.Close()
}
