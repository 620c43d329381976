package stream

import "strings"

// LineReassembler turns arbitrarily split fragments into complete lines.
// The zero value is ready to use.
type LineReassembler struct {
	tail string
}

// Push appends fragment and returns every line it completed, in order and
// without the terminating newline. The unterminated remainder is retained.
func (r *LineReassembler) Push(fragment string) []string {
	if fragment == "" {
		return nil
	}
	data := r.tail + fragment
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		r.tail = data
		return nil
	}
	r.tail = data[idx+1:]

	parts := strings.Split(data[:idx], "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// Pending returns the incomplete line buffered so far
func (r *LineReassembler) Pending() string {
	return r.tail
}

// Flush returns the incomplete line and resets the buffer
func (r *LineReassembler) Flush() string {
	tail := strings.TrimSuffix(r.tail, "\r")
	r.tail = ""
	return tail
}
