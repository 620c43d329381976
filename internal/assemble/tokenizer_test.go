package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizer_Spans(t *testing.T) {
	doc := `{"title": "x", "bias": {"a": {"b": [1, {"c": 2}]}}, "redFlags": [{"d": "}"}], "n": 3}`

	tok := NewTokenizer()
	spans := tok.Feed(doc)

	require.Len(t, spans, 2)
	assert.Equal(t, Span{Key: "bias", Raw: `{"a": {"b": [1, {"c": 2}]}}`}, spans[0])
	assert.Equal(t, Span{Key: "redFlags", Raw: `[{"d": "}"}]`}, spans[1])

	root, ok := tok.Root(doc)
	require.True(t, ok)
	assert.Equal(t, doc, root)
}

func TestTokenizer_StringsDoNotConfuseDepth(t *testing.T) {
	doc := `{"bias": {"justification": "a \"quoted\" {brace} and \\ slash", "x": "]"}, "keyFindings": {}}`

	spans := NewTokenizer().Feed(doc)

	require.Len(t, spans, 2)
	assert.Equal(t, "bias", spans[0].Key)
	assert.Equal(t, `{"justification": "a \"quoted\" {brace} and \\ slash", "x": "]"}`, spans[0].Raw)
	assert.Equal(t, Span{Key: "keyFindings", Raw: "{}"}, spans[1])
}

func TestTokenizer_IgnoresTextBeforeRoot(t *testing.T) {
	doc := "Here is the analysis \"quoted\":\n```json\n{\"bias\": {\"a\": 1}}\n```"

	tok := NewTokenizer()
	spans := tok.Feed(doc)

	require.Len(t, spans, 1)
	assert.Equal(t, `{"a": 1}`, spans[0].Raw)

	root, ok := tok.Root(doc)
	require.True(t, ok)
	assert.Equal(t, `{"bias": {"a": 1}}`, root)
}

func TestTokenizer_EscapedKey(t *testing.T) {
	spans := NewTokenizer().Feed(`{"key\u0046indings": {"a": 1}}`)

	require.Len(t, spans, 1)
	assert.Equal(t, "keyFindings", spans[0].Key)
}

func TestTokenizer_IncrementalMatchesOneShot(t *testing.T) {
	whole := NewTokenizer().Feed(fullDocument)
	require.NotEmpty(t, whole)

	tok := NewTokenizer()
	var got []Span
	for i := 1; i <= len(fullDocument); i++ {
		got = append(got, tok.Feed(fullDocument[:i])...)
	}
	assert.Equal(t, whole, got)
	assert.True(t, tok.Started())
}

func TestTokenizer_UnclosedRoot(t *testing.T) {
	buf := `{"bias": {"a": 1}, "keyFindings": {"b": `

	tok := NewTokenizer()
	spans := tok.Feed(buf)

	require.Len(t, spans, 1)
	assert.Equal(t, "bias", spans[0].Key)
	_, ok := tok.Root(buf)
	assert.False(t, ok)
}

func TestTokenizer_StopsAfterRoot(t *testing.T) {
	buf := `{"bias": {"a": 1}} {"keyFindings": {"b": 2}}`

	spans := NewTokenizer().Feed(buf)

	require.Len(t, spans, 1)
	assert.Equal(t, "bias", spans[0].Key)
}

func TestTokenizer_SkipsBracedProse(t *testing.T) {
	doc := "Here is the analysis {as requested}:\n```json\n{\"bias\": {\"a\": 1}}\n```"

	tok := NewTokenizer()
	var spans []Span
	for i := 1; i <= len(doc); i++ {
		spans = append(spans, tok.Feed(doc[:i])...)
	}

	require.Len(t, spans, 1)
	assert.Equal(t, Span{Key: "bias", Raw: `{"a": 1}`}, spans[0])
	root, ok := tok.Root(doc)
	require.True(t, ok)
	assert.Equal(t, `{"bias": {"a": 1}}`, root)
}

func TestTokenizer_SkipsEmptyObjectBeforeRoot(t *testing.T) {
	doc := `Result {} follows: {"bias": {"a": 1}}`

	tok := NewTokenizer()
	spans := tok.Feed(doc)

	require.Len(t, spans, 1)
	root, ok := tok.Root(doc)
	require.True(t, ok)
	assert.Equal(t, `{"bias": {"a": 1}}`, root)

	empty := NewTokenizer()
	empty.Feed(" {} ")
	root, ok = empty.Root(" {} ")
	require.True(t, ok)
	assert.Equal(t, "{}", root)
}
