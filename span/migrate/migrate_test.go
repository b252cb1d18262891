package migrate_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emlkit/go-emlspan/span"
	"github.com/emlkit/go-emlspan/span/migrate"
)

// encodedEml carries the same text twice: quoted-printable plain and
// base64 html ("PGI+Q2Fmw6k8L2I+" decodes to "<b>Café</b>").
const encodedEml = "From: a@b.com\n" +
	"Content-Type: multipart/alternative; boundary=B\n" +
	"\n" +
	"--B\n" +
	"Content-Type: text/plain; charset=utf-8\n" +
	"Content-Transfer-Encoding: quoted-printable\n" +
	"\n" +
	"Caf=C3=A9 meeting\n" +
	"--B\n" +
	"Content-Type: text/html; charset=utf-8\n" +
	"Content-Transfer-Encoding: base64\n" +
	"\n" +
	"PGI+Q2Fmw6k8L2I+\n" +
	"--B--\n"

// runeIndex returns the codepoint offset of the first occurrence of sub.
func runeIndex(t *testing.T, s, sub string) int {
	t.Helper()
	ix := strings.Index(s, sub)
	require.GreaterOrEqual(t, ix, 0, "%q not found", sub)
	return utf8.RuneCountInString(s[:ix])
}

func TestMapperFlat(t *testing.T) {
	t.Parallel()

	m := migrate.NewMapper(encodedEml)
	flat := m.Flat()

	assert.Contains(t, flat, "\n\nCafé meeting\n--B\n")
	assert.Contains(t, flat, "\n\n<b>Café</b>\n--B--\n")
	assert.NotContains(t, flat, "quoted-printable")
	assert.NotContains(t, flat, "base64")
	assert.Equal(t, 2, strings.Count(flat, "Content-Transfer-Encoding: 8bit"))
	assert.NotContains(t, flat, "\r")
}

func TestMapperIdentityWithoutEncodedParts(t *testing.T) {
	t.Parallel()

	raw := "From: a@b.com\r\nContent-Type: text/plain\r\n\r\nHello\r\n"
	m := migrate.NewMapper(raw)
	assert.Equal(t, strings.ReplaceAll(raw, "\r", ""), m.Flat())
	for _, off := range []int{0, 5, 20} {
		assert.Equal(t, off, m.Map(off))
	}
}

func TestMapperMapQuotedPrintable(t *testing.T) {
	t.Parallel()

	m := migrate.NewMapper(encodedEml)
	flat := m.Flat()

	rawBody := runeIndex(t, encodedEml, "Caf=C3=A9")
	flatBody := runeIndex(t, flat, "Café meeting")

	// offsets before any rewritten region pass through unchanged
	assert.Equal(t, 0, m.Map(0))
	assert.Equal(t, 5, m.Map(5))

	assert.Equal(t, flatBody, m.Map(rawBody))
	assert.Equal(t, flatBody+3, m.Map(rawBody+3))
	// inside the =C3 and =A9 escapes: both land on the é
	assert.Equal(t, flatBody+3, m.Map(rawBody+4))
	assert.Equal(t, flatBody+3, m.Map(rawBody+7))
	// the space after the escapes
	assert.Equal(t, flatBody+4, m.Map(rawBody+9))
	// end of the encoded body maps to end of the decoded text
	assert.Equal(t, flatBody+12, m.Map(rawBody+17))
}

func TestMapperMapSnapsInsideCTEField(t *testing.T) {
	t.Parallel()

	m := migrate.NewMapper(encodedEml)

	cte := runeIndex(t, encodedEml, "Content-Transfer-Encoding: quoted-printable")
	for _, off := range []int{cte, cte + 10, cte + 42} {
		assert.Equal(t, cte, m.Map(off))
	}
}

func TestMapperMapBase64(t *testing.T) {
	t.Parallel()

	m := migrate.NewMapper(encodedEml)
	flat := m.Flat()

	rawBody := runeIndex(t, encodedEml, "PGI+")
	flatBody := runeIndex(t, flat, "<b>Café</b>")

	assert.Equal(t, flatBody, m.Map(rawBody))
	// proportional within the body, exact at the end
	assert.Equal(t, flatBody+11, m.Map(rawBody+16))
	mid := m.Map(rawBody + 8)
	assert.GreaterOrEqual(t, mid, flatBody)
	assert.LessOrEqual(t, mid, flatBody+11)
}

func TestMigratePositionMapped(t *testing.T) {
	t.Parallel()

	m := migrate.NewMapper(encodedEml)
	flatBody := runeIndex(t, m.Flat(), "Café meeting")

	legacy := []span.Span{{
		Start: flatBody + 5,
		End:   flatBody + 12,
		Text:  "meeting",
	}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	assert.Equal(t, migrate.OutcomeMapped, res.Outcome)
	assert.Equal(t, 1, res.Span.SectionIndex)
	assert.Equal(t, 5, res.Span.Start)
	assert.Equal(t, 12, res.Span.End)
}

func TestMigrateRawOffsets(t *testing.T) {
	t.Parallel()

	rawBody := runeIndex(t, encodedEml, "Caf=C3=A9")

	legacy := []span.Span{{
		Start: rawBody,
		End:   rawBody + 9, // "Caf=C3=A9" in the raw string
		Text:  "Café",
	}}

	rep := migrate.MigrateDocument(encodedEml, legacy, &migrate.Options{RawOffsets: true})
	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	assert.Equal(t, migrate.OutcomeMapped, res.Outcome)
	assert.Equal(t, 1, res.Span.SectionIndex)
	assert.Equal(t, 0, res.Span.Start)
	assert.Equal(t, 4, res.Span.End)
}

func TestMigrateTextSearchFallback(t *testing.T) {
	t.Parallel()

	// offsets point into the header block, so position mapping misses
	legacy := []span.Span{{Start: 0, End: 7, Text: "meeting"}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	res := rep.Results[0]
	assert.Equal(t, migrate.OutcomeTextSearch, res.Outcome)
	assert.Equal(t, 1, res.Span.SectionIndex)
	assert.Equal(t, 5, res.Span.Start)
	assert.Equal(t, 12, res.Span.End)
}

func TestMigrateStripsSoftBreaks(t *testing.T) {
	t.Parallel()

	legacy := []span.Span{{Start: 0, End: 9, Text: "meet=\ning"}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	res := rep.Results[0]
	assert.Equal(t, migrate.OutcomeTextSearch, res.Outcome)
	assert.Equal(t, "meeting", res.Span.Text)
	assert.Equal(t, 1, res.Span.SectionIndex)
}

func TestMigrateAmbiguous(t *testing.T) {
	t.Parallel()

	// "Café" occurs in both bodies and the offsets give no usable context
	legacy := []span.Span{{Start: 0, End: 4, Text: "Café"}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	res := rep.Results[0]
	assert.Equal(t, migrate.OutcomeAmbiguous, res.Outcome)
	assert.Equal(t, 1, res.Span.SectionIndex)
	assert.Equal(t, 0, res.Span.Start)
	assert.Equal(t, 4, res.Span.End)
}

func TestMigrateFailed(t *testing.T) {
	t.Parallel()

	legacy := []span.Span{{Start: 3, End: 6, Text: "zzz"}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	res := rep.Results[0]
	assert.Equal(t, migrate.OutcomeFailed, res.Outcome)
	assert.Equal(t, -1, res.Span.SectionIndex)
	assert.Equal(t, 1, rep.Count(migrate.OutcomeFailed))
}

func TestMigrateDuplicatesAcrossBodies(t *testing.T) {
	t.Parallel()

	m := migrate.NewMapper(encodedEml)
	flatBody := runeIndex(t, m.Flat(), "Café meeting")

	id := uuid.New()
	legacy := []span.Span{{
		ID:    id,
		Start: flatBody,
		End:   flatBody + 4,
		Text:  "Café",
	}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	require.Equal(t, migrate.OutcomeMapped, rep.Results[0].Outcome)
	assert.Equal(t, 1, rep.Results[0].Span.SectionIndex)

	require.Len(t, rep.Duplicates, 1)
	dup := rep.Duplicates[0]
	assert.Equal(t, 2, dup.SectionIndex)
	assert.Equal(t, 3, dup.Start) // after "<b>"
	assert.Equal(t, 7, dup.End)
	assert.Equal(t, "Café", dup.Text)
	assert.NotEqual(t, id, dup.ID)

	spans := rep.Spans()
	assert.Len(t, spans, 2)
}

func TestMigrateHeaderSpansAreNotDuplicated(t *testing.T) {
	t.Parallel()

	legacy := []span.Span{{Start: 6, End: 13, Text: "a@b.com"}}

	rep := migrate.MigrateDocument(encodedEml, legacy, nil)
	require.Equal(t, migrate.OutcomeMapped, rep.Results[0].Outcome)
	assert.Equal(t, 0, rep.Results[0].Span.SectionIndex)
	assert.Empty(t, rep.Duplicates)
}
