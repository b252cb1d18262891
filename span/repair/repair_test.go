package repair_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emlkit/go-emlspan/span"
	"github.com/emlkit/go-emlspan/span/repair"
)

func TestTrimWhitespace(t *testing.T) {
	t.Parallel()

	content := map[int]string{1: "Dear  Alice Smith ,\nRegards"}

	spans := []span.Span{
		// padded on both sides
		{SectionIndex: 1, Start: 4, End: 18, Text: "  Alice Smith "},
		// already clean
		{SectionIndex: 1, Start: 6, End: 17, Text: "Alice Smith"},
		// nothing but whitespace
		{SectionIndex: 1, Start: 4, End: 6, Text: "  "},
	}

	rep := repair.TrimWhitespace(spans, content)
	require.Len(t, rep.Results, 3)

	assert.Equal(t, repair.OutcomeCorrected, rep.Results[0].Outcome)
	fixed := rep.Results[0].Span
	assert.Equal(t, 6, fixed.Start)
	assert.Equal(t, 17, fixed.End)
	assert.Equal(t, "Alice Smith", fixed.Text)
	assert.NoError(t, fixed.Verify(content[1]))

	assert.Equal(t, repair.OutcomeMatched, rep.Results[1].Outcome)

	assert.Equal(t, repair.OutcomeDropped, rep.Results[2].Outcome)
	assert.ErrorIs(t, rep.Results[2].Err, repair.ErrAllWhitespace)

	// dropped span is omitted from the surviving list
	assert.Len(t, rep.Spans(), 2)
	assert.Equal(t, 1, rep.Count(repair.OutcomeCorrected))
	assert.True(t, rep.Clean())
}

func TestTrimWhitespaceUnicodeSpace(t *testing.T) {
	t.Parallel()

	// non-breaking space counts as whitespace like Unicode strip does
	content := map[int]string{1: "to Bob now"}
	spans := []span.Span{
		{SectionIndex: 1, Start: 2, End: 7, Text: " Bob "},
	}

	rep := repair.TrimWhitespace(spans, content)
	require.Equal(t, repair.OutcomeCorrected, rep.Results[0].Outcome)
	assert.Equal(t, "Bob", rep.Results[0].Span.Text)
	assert.Equal(t, 3, rep.Results[0].Span.Start)
	assert.Equal(t, 6, rep.Results[0].Span.End)
}

func TestTrimWhitespaceRejectsStaleOffsets(t *testing.T) {
	t.Parallel()

	// trimming would produce "Bob" but the offsets point elsewhere
	content := map[int]string{1: "Alice and Bob"}
	spans := []span.Span{
		{SectionIndex: 1, Start: 0, End: 5, Text: " Bob "},
	}

	rep := repair.TrimWhitespace(spans, content)
	require.Equal(t, repair.OutcomeFailed, rep.Results[0].Outcome)
	// the original span is carried through untouched
	assert.Equal(t, " Bob ", rep.Results[0].Span.Text)
	assert.Equal(t, 0, rep.Results[0].Span.Start)
	assert.False(t, rep.Clean())
}

func TestRepairUTF16(t *testing.T) {
	t.Parallel()

	content := map[int]string{1: "Hi 😀 Bob"}

	spans := []span.Span{
		// recorded in UTF-16 units: the emoji counts twice
		{SectionIndex: 1, Start: 6, End: 9, Text: "Bob"},
		// before the emoji, so the units already equal codepoints
		{SectionIndex: 1, Start: 0, End: 2, Text: "Hi"},
	}

	rep := repair.RepairUTF16(spans, content)
	require.Len(t, rep.Results, 2)

	assert.Equal(t, repair.OutcomeCorrected, rep.Results[0].Outcome)
	assert.Equal(t, 5, rep.Results[0].Span.Start)
	assert.Equal(t, 8, rep.Results[0].Span.End)
	assert.NoError(t, rep.Results[0].Span.Verify(content[1]))

	assert.Equal(t, repair.OutcomeMatched, rep.Results[1].Outcome)
}

func TestRepairUTF16SurrogateSplit(t *testing.T) {
	t.Parallel()

	content := map[int]string{1: "Hi 😀 Bob"}
	spans := []span.Span{
		// start lands inside the emoji's surrogate pair
		{SectionIndex: 1, Start: 4, End: 9, Text: "😀 Bob"},
	}

	rep := repair.RepairUTF16(spans, content)
	require.Equal(t, repair.OutcomeFailed, rep.Results[0].Outcome)
	assert.ErrorIs(t, rep.Results[0].Err, span.ErrSurrogateSplit)
	// failed spans stay in the surviving list unchanged
	require.Len(t, rep.Spans(), 1)
	assert.Equal(t, 4, rep.Spans()[0].Start)
}

func TestRepairUTF16MissingSection(t *testing.T) {
	t.Parallel()

	rep := repair.RepairUTF16(
		[]span.Span{{SectionIndex: 7, Start: 0, End: 3, Text: "abc"}},
		map[int]string{1: "abc"},
	)
	require.Equal(t, repair.OutcomeFailed, rep.Results[0].Outcome)
	assert.ErrorIs(t, rep.Results[0].Err, span.ErrNoSection)
}

func TestRepairUTF16MismatchAfterConversion(t *testing.T) {
	t.Parallel()

	content := map[int]string{1: "Hi 😀 Bob"}
	spans := []span.Span{
		// converts cleanly but the text does not match the slice
		{SectionIndex: 1, Start: 6, End: 9, Text: "Rob"},
	}

	rep := repair.RepairUTF16(spans, content)
	require.Equal(t, repair.OutcomeFailed, rep.Results[0].Outcome)
	var mm *span.MismatchError
	assert.ErrorAs(t, rep.Results[0].Err, &mm)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	content := map[int]string{0: "From: a@b.com\n", 1: "Hello Alice\n"}

	spans := []span.Span{
		{SectionIndex: 1, Start: 6, End: 11, Text: "Alice"},
		{SectionIndex: 1, Start: 6, End: 11, Text: "Bob"},
		{SectionIndex: 9, Start: 0, End: 1, Text: "F"},
	}

	rep := repair.Verify(spans, content)
	require.Len(t, rep.Results, 3)
	assert.Equal(t, repair.OutcomeMatched, rep.Results[0].Outcome)
	assert.Equal(t, repair.OutcomeFailed, rep.Results[1].Outcome)
	assert.ErrorIs(t, rep.Results[2].Err, span.ErrNoSection)
	assert.Equal(t, 2, rep.Count(repair.OutcomeFailed))

	// verify never rewrites anything
	for i, res := range rep.Results {
		assert.Equal(t, spans[i], res.Span)
	}
}
