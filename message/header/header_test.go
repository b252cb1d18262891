package header_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emlkit/go-emlspan/message/header"
)

const rawHeader = "From: a@b.com\r\n" +
	"Received: from relay.example.com\r\n" +
	"\tby mx.example.com; Mon, 1 Jan 2024 10:00:00 +0000\r\n" +
	"Received: from origin.example.com\r\n" +
	"Subject: Hello\r\n" +
	"Content-Type: text/plain; charset=\"iso-8859-1\"\r\n"

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	h := header.Parse([]byte(rawHeader), header.CRLF)
	assert.Equal(t, rawHeader, string(h.Bytes()))
}

func TestGetUnfoldsContinuations(t *testing.T) {
	t.Parallel()

	h := header.Parse([]byte(rawHeader), header.CRLF)

	got, err := h.Get("received")
	require.NoError(t, err)
	assert.Equal(t, "from relay.example.com by mx.example.com; Mon, 1 Jan 2024 10:00:00 +0000", got)

	all := h.GetAll("Received")
	require.Len(t, all, 2)
	assert.Equal(t, "from origin.example.com", all[1])
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	h := header.Parse([]byte(rawHeader), header.CRLF)
	_, err := h.Get("X-Missing")
	assert.ErrorIs(t, err, header.ErrNoSuchField)
}

func TestSetKeepsPosition(t *testing.T) {
	t.Parallel()

	h := header.Parse([]byte("A: 1\nB: 2\nC: 3\n"), header.LF)
	h.Set("B", "two")
	assert.Equal(t, "A: 1\nB: two\nC: 3\n", string(h.Bytes()))

	h.Set("D", "4")
	assert.Equal(t, "A: 1\nB: two\nC: 3\nD: 4\n", string(h.Bytes()))
}

func TestJunkLineRoundTrips(t *testing.T) {
	t.Parallel()

	raw := "garbage without colon\nFrom: a@b.com\n"
	h := header.Parse([]byte(raw), header.LF)
	assert.Equal(t, raw, string(h.Bytes()))

	from, err := h.Get("From")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", from)
}

func TestMediaTypeHelpers(t *testing.T) {
	t.Parallel()

	h := header.Parse([]byte(rawHeader), header.CRLF)

	mt, err := h.MediaType()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)

	cs, err := h.Charset()
	require.NoError(t, err)
	assert.Equal(t, "iso-8859-1", cs)

	_, err = h.Boundary()
	assert.ErrorIs(t, err, header.ErrNoSuchParameter)
}

func TestTransferEncoding(t *testing.T) {
	t.Parallel()

	h := header.Parse([]byte("Content-Transfer-Encoding: BASE64\n"), header.LF)
	cte, err := h.TransferEncoding()
	require.NoError(t, err)
	assert.Equal(t, "base64", cte)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	// RFC 5322 form
	got, err := header.ParseTime("Mon, 1 Jan 2024 10:00:00 +0000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got.UTC())

	// lenient fallback
	got, err = header.ParseTime("2024-01-01 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	_, err = header.ParseTime("not a date")
	assert.Error(t, err)
}

func TestBreakBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "\r\n", string(header.CRLF.Bytes()))
	assert.Equal(t, "\n", string(header.LF.Bytes()))

	h := header.Parse(nil, header.LF)
	assert.Equal(t, header.LF, h.Break())
}
