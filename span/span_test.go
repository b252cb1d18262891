package span_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emlkit/go-emlspan/span"
)

func TestSliceCodepoints(t *testing.T) {
	t.Parallel()

	content := "Hi 😀 Bob"

	got, ok := span.Span{Start: 5, End: 8}.Slice(content)
	require.True(t, ok)
	assert.Equal(t, "Bob", got)

	got, ok = span.Span{Start: 3, End: 4}.Slice(content)
	require.True(t, ok)
	assert.Equal(t, "😀", got)

	_, ok = span.Span{Start: 5, End: 99}.Slice(content)
	assert.False(t, ok)

	_, ok = span.Span{Start: -1, End: 2}.Slice(content)
	assert.False(t, ok)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	content := "Hello Alice,\nRegards"

	ok := span.Span{Start: 6, End: 11, Text: "Alice"}
	assert.NoError(t, ok.Verify(content))

	empty := span.Span{Start: 6, End: 6, Text: ""}
	assert.ErrorIs(t, empty.Verify(content), span.ErrRange)

	past := span.Span{Start: 6, End: 999, Text: "Alice"}
	assert.ErrorIs(t, past.Verify(content), span.ErrRange)

	stale := span.Span{Start: 6, End: 11, Text: "Bob"}
	err := stale.Verify(content)
	var mm *span.MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, "Bob", mm.Want)
	assert.Equal(t, "Alice", mm.Got)
}

func TestReplacement(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[PERSON_NAME]",
		span.Span{ClassName: "PERSON_NAME"}.Replacement())
	assert.Equal(t, "[greeting]",
		span.Span{ClassName: "PERSON_NAME", Tag: "[greeting]"}.Replacement())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"short"`, span.Truncate("short", 10))
	assert.Equal(t, `"abc"...`, span.Truncate("abcdef", 3))
}

func TestBySection(t *testing.T) {
	t.Parallel()

	spans := []span.Span{
		{SectionIndex: 1, Text: "a"},
		{SectionIndex: 0, Text: "b"},
		{SectionIndex: 1, Text: "c"},
	}
	m := span.BySection(spans)
	require.Len(t, m, 2)
	assert.Len(t, m[1], 2)
	assert.Equal(t, "b", m[0][0].Text)
}

func TestUTF16Len(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, span.UTF16Len(""))
	assert.Equal(t, 5, span.UTF16Len("hello"))
	assert.Equal(t, 2, span.UTF16Len("😀"))
	assert.Equal(t, 1, span.UTF16Len("￿")) // last BMP codepoint is one unit
	assert.Equal(t, 9, span.UTF16Len("Hi 😀 Bob"))
}

func TestUTF16ToCodepoint(t *testing.T) {
	t.Parallel()

	content := "Hi 😀 Bob"

	cp, err := span.UTF16ToCodepoint(content, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, cp)

	cp, err = span.UTF16ToCodepoint(content, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cp)

	// past the emoji: 6 units is 5 codepoints
	cp, err = span.UTF16ToCodepoint(content, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, cp)

	// end of content
	cp, err = span.UTF16ToCodepoint(content, 9)
	require.NoError(t, err)
	assert.Equal(t, 8, cp)

	// inside the surrogate pair
	_, err = span.UTF16ToCodepoint(content, 4)
	assert.ErrorIs(t, err, span.ErrSurrogateSplit)

	_, err = span.UTF16ToCodepoint(content, 10)
	assert.ErrorIs(t, err, span.ErrPastEnd)

	_, err = span.UTF16ToCodepoint(content, -1)
	assert.ErrorIs(t, err, span.ErrPastEnd)
}

func TestCodepointToUTF16(t *testing.T) {
	t.Parallel()

	content := "Hi 😀 Bob"

	for cp, want := range map[int]int{0: 0, 3: 3, 4: 5, 5: 6, 8: 9} {
		got, err := span.CodepointToUTF16(content, cp)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := span.CodepointToUTF16(content, 9)
	assert.ErrorIs(t, err, span.ErrPastEnd)
}

func TestUTF16RoundTrip(t *testing.T) {
	t.Parallel()

	content := "a😀b😀c"
	for cp := 0; cp <= 5; cp++ {
		u, err := span.CodepointToUTF16(content, cp)
		require.NoError(t, err)
		back, err := span.UTF16ToCodepoint(content, u)
		require.NoError(t, err)
		assert.Equal(t, cp, back)
	}
}

func TestSetAddAssignsID(t *testing.T) {
	t.Parallel()

	s := span.NewSet("mail-001")
	assert.Equal(t, 1, s.Version)

	s.Add(span.Span{Text: "Alice"})
	require.Len(t, s.Spans, 1)
	assert.NotEqual(t, uuid.Nil, s.Spans[0].ID)

	id := uuid.New()
	s.Add(span.Span{ID: id, Text: "Bob"})
	assert.Equal(t, id, s.Spans[1].ID)
}

func TestSetNext(t *testing.T) {
	t.Parallel()

	s := span.NewSet("mail-001")
	s.Add(span.Span{Text: "Alice"})

	next := s.Next([]span.Span{{Text: "Bob"}})
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, "mail-001", next.Document)
	assert.False(t, next.SavedAt.IsZero())
	assert.Len(t, next.Spans, 1)

	// the original is untouched
	assert.Equal(t, 1, s.Version)
	assert.Equal(t, "Alice", s.Spans[0].Text)
}

func TestSetMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	s := span.NewSet("mail-001")
	s.Add(span.Span{
		SectionIndex: 1,
		Start:        6,
		End:          11,
		Text:         "Alice",
		ClassName:    "PERSON_NAME",
	})

	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sectionIndex": 1`)
	assert.Contains(t, string(data), `"originalText": "Alice"`)

	back, err := span.UnmarshalSet(data)
	require.NoError(t, err)
	assert.Equal(t, s.Document, back.Document)
	require.Len(t, back.Spans, 1)
	assert.Equal(t, s.Spans[0], back.Spans[0])
}

func TestUnmarshalBareArray(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal([]span.Span{
		{SectionIndex: 1, Start: 0, End: 5, Text: "Alice"},
	})
	require.NoError(t, err)

	s, err := span.UnmarshalSet(data)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Version)
	require.Len(t, s.Spans, 1)
	assert.Equal(t, "Alice", s.Spans[0].Text)
}

func TestUnmarshalGarbage(t *testing.T) {
	t.Parallel()

	_, err := span.UnmarshalSet([]byte("{nope"))
	assert.Error(t, err)
}
