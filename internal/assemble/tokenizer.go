package assemble

import "encoding/json"

// Span is the raw text of a completed top-level object or array value
type Span struct {
	Key string
	Raw string
}

// Tokenizer incrementally scans a growing JSON document and reports each
// top-level member whose object or array value has closed. It tracks
// nesting depth and string/escape state, so braces and quotes inside
// strings never confuse it. Text before the root object is ignored, and
// so is braced prose such as "{as requested}": an object that holds
// something other than a quoted key, or closes with no members, is not
// taken as the root.
//
// Feed must always be passed the whole buffer; only the bytes added since
// the previous call are scanned.
type Tokenizer struct {
	pos int

	depth    int
	inString bool
	escaped  bool
	isKey    bool

	rootStart int
	rootEnd   int
	members   int

	// last empty object seen, used as the root if nothing else closes
	emptyStart int
	emptyEnd   int

	expectKey  bool
	keyStart   int
	key        string
	valueStart int
}

// NewTokenizer returns a tokenizer positioned at the start of a document
func NewTokenizer() *Tokenizer {
	return &Tokenizer{rootStart: -1, rootEnd: -1, valueStart: -1, emptyStart: -1}
}

// Feed scans buf from where the previous call stopped and returns the
// members completed by the new bytes, in document order.
func (t *Tokenizer) Feed(buf string) []Span {
	var spans []Span
	for ; t.pos < len(buf) && t.rootEnd < 0; t.pos++ {
		i, c := t.pos, buf[t.pos]

		if t.inString {
			switch {
			case t.escaped:
				t.escaped = false
			case c == '\\':
				t.escaped = true
			case c == '"':
				t.inString = false
				if t.isKey {
					t.key = decodeKey(buf[t.keyStart : i+1])
				}
			}
			continue
		}

		if t.rootStart >= 0 && t.depth == 1 && t.expectKey && !isKeyPosition(c) {
			t.reset()
		}

		if t.rootStart < 0 {
			if c == '{' {
				t.rootStart = i
				t.depth = 1
				t.expectKey = true
			}
			continue
		}

		switch c {
		case '"':
			t.inString = true
			t.isKey = t.depth == 1 && t.expectKey
			if t.isKey {
				t.keyStart = i
				t.members++
			}
		case ':':
			if t.depth == 1 {
				t.expectKey = false
			}
		case ',':
			if t.depth == 1 {
				t.expectKey = true
				t.key = ""
			}
		case '{', '[':
			t.depth++
			if t.depth == 2 && t.key != "" {
				t.valueStart = i
			}
		case '}', ']':
			t.depth--
			if t.depth == 1 && t.valueStart >= 0 {
				spans = append(spans, Span{Key: t.key, Raw: buf[t.valueStart : i+1]})
				t.valueStart = -1
			}
			if t.depth == 0 {
				if t.members == 0 {
					t.emptyStart, t.emptyEnd = t.rootStart, i+1
					t.reset()
					continue
				}
				t.rootEnd = i + 1
			}
		}
	}
	return spans
}

// reset abandons the current candidate root
func (t *Tokenizer) reset() {
	t.rootStart = -1
	t.depth = 0
	t.members = 0
	t.expectKey = false
	t.key = ""
	t.valueStart = -1
}

// isKeyPosition reports whether c may appear where a member key is expected
func isKeyPosition(c byte) bool {
	switch c {
	case '"', ':', '}', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// Root returns the complete root object once it has closed. An empty
// object counts only when no other object followed it.
func (t *Tokenizer) Root(buf string) (string, bool) {
	if t.rootStart >= 0 && t.rootEnd >= 0 && t.rootEnd <= len(buf) {
		return buf[t.rootStart:t.rootEnd], true
	}
	if t.rootStart < 0 && t.emptyStart >= 0 && t.emptyEnd <= len(buf) {
		return buf[t.emptyStart:t.emptyEnd], true
	}
	return "", false
}

// Started reports whether the root object has opened
func (t *Tokenizer) Started() bool {
	return t.rootStart >= 0
}

func decodeKey(quoted string) string {
	var k string
	if err := json.Unmarshal([]byte(quoted), &k); err != nil {
		return quoted[1 : len(quoted)-1]
	}
	return k
}
