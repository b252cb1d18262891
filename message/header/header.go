// Package header provides an ordered email header that preserves field
// order, folded continuation lines, and the original line-break style.
package header

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Errors returned by Header methods.
var (
	// ErrNoSuchField is returned when the named header field is not set.
	ErrNoSuchField = errors.New("no such header field")

	// ErrNoSuchParameter is returned when a header field exists but the
	// requested parameter (e.g. charset, boundary) does not.
	ErrNoSuchParameter = errors.New("no such header field parameter")
)

// Standard field names this library touches.
const (
	ContentType             = "Content-Type"
	ContentTransferEncoding = "Content-Transfer-Encoding"
	Date                    = "Date"
	From                    = "From"
	To                      = "To"
	Cc                      = "Cc"
	Bcc                     = "Bcc"
	ReplyTo                 = "Reply-To"
	Sender                  = "Sender"
	Received                = "Received"
	Subject                 = "Subject"
)

// Header is an ordered list of header fields. Fields with the same name may
// repeat (Received typically does) and order is always preserved, both for
// lookups and for output.
type Header struct {
	lbr    Break
	fields []*Field
}

// Parse parses a raw header block (everything before the blank-line
// separator, line break included after each field) using the given line
// break. Lines that start with space or tab, or that contain no colon, are
// folded continuations of the previous field.
func Parse(raw []byte, lb Break) *Header {
	lbb := lb.Bytes()
	chunks := make([][]byte, 0, bytes.Count(raw, lbb)+1)
	for _, line := range splitAfter(raw, lbb) {
		if len(line) == 0 {
			break
		}
		cont := line[0] == ' ' || line[0] == '\t' || !bytes.ContainsRune(line, ':')
		if cont && len(chunks) > 0 {
			chunks[len(chunks)-1] = append(chunks[len(chunks)-1], line...)
			continue
		}
		// a junk line before the first field becomes a nameless field so
		// the header still renders byte for byte
		chunks = append(chunks, line)
	}

	fields := make([]*Field, len(chunks))
	for i, c := range chunks {
		fields[i] = parseField(c, lbb)
	}

	return &Header{lbr: lb, fields: fields}
}

// splitAfter is bytes.SplitAfter, but the final empty chunk produced when
// the input ends with the separator is dropped.
func splitAfter(raw, lb []byte) [][]byte {
	chunks := bytes.SplitAfter(raw, lb)
	if n := len(chunks); n > 0 && len(chunks[n-1]) == 0 {
		chunks = chunks[:n-1]
	}
	return chunks
}

// Break returns the line break in use by this header.
func (h *Header) Break() Break {
	if h.lbr == "" {
		return LF
	}
	return h.lbr
}

// SetBreak changes the line break used when writing the header.
func (h *Header) SetBreak(lb Break) {
	h.lbr = lb
}

// Fields returns the fields in order. The returned slice is shared with
// the header; do not modify it.
func (h *Header) Fields() []*Field {
	return h.fields
}

// Get returns the body of the first field with the given name, matched
// case-insensitively. Returns ErrNoSuchField if the field is not set.
func (h *Header) Get(name string) (string, error) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name(), name) {
			return f.Body(), nil
		}
	}
	return "", ErrNoSuchField
}

// GetAll returns the bodies of every field with the given name, in order.
func (h *Header) GetAll(name string) []string {
	var bs []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name(), name) {
			bs = append(bs, f.Body())
		}
	}
	return bs
}

// Set replaces the body of the first field with the given name, keeping
// its position in the header. If no such field exists, a new field is
// appended at the end.
func (h *Header) Set(name, body string) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name(), name) {
			f.SetBody(body)
			return
		}
	}
	h.fields = append(h.fields, NewField(name, body))
}

// Bytes renders the header fields in order, each terminated by the
// header's line break. The blank-line separator before the body is not
// included; the message writer owns that.
func (h *Header) Bytes() []byte {
	var buf bytes.Buffer
	for _, f := range h.fields {
		buf.Write(f.Bytes(h.Break()))
	}
	return buf.Bytes()
}

// mediaType parses the Content-Type field body.
func (h *Header) mediaType() (string, map[string]string, error) {
	body, err := h.Get(ContentType)
	if err != nil {
		return "", nil, err
	}
	mt, params, err := mime.ParseMediaType(body)
	if err != nil {
		return "", nil, fmt.Errorf("malformed %s %q: %w", ContentType, body, err)
	}
	return mt, params, nil
}

// MediaType returns the media type from the Content-Type field, e.g.
// "text/plain", lowercased. Returns ErrNoSuchField when Content-Type is
// absent.
func (h *Header) MediaType() (string, error) {
	mt, _, err := h.mediaType()
	return mt, err
}

// Charset returns the charset parameter of the Content-Type field.
func (h *Header) Charset() (string, error) {
	_, params, err := h.mediaType()
	if err != nil {
		return "", err
	}
	cs, ok := params["charset"]
	if !ok {
		return "", ErrNoSuchParameter
	}
	return cs, nil
}

// Boundary returns the boundary parameter of the Content-Type field.
func (h *Header) Boundary() (string, error) {
	_, params, err := h.mediaType()
	if err != nil {
		return "", err
	}
	b, ok := params["boundary"]
	if !ok {
		return "", ErrNoSuchParameter
	}
	return b, nil
}

// TransferEncoding returns the Content-Transfer-Encoding field body,
// trimmed and lowercased. Returns ErrNoSuchField when absent.
func (h *Header) TransferEncoding() (string, error) {
	body, err := h.Get(ContentTransferEncoding)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(body)), nil
}

// ParseTime parses a header date body. It tries the RFC 5322 format first
// and falls back to lenient parsing of the many date shapes seen in the
// wild.
func ParseTime(body string) (time.Time, error) {
	t, err := mail.ParseDate(body)
	if err == nil {
		return t, nil
	}

	t, err = dateparse.ParseAny(body)
	if err == nil {
		return t, nil
	}

	return t, fmt.Errorf("time string %q cannot be parsed", body)
}

// GetTime parses the named field body as a date.
func (h *Header) GetTime(name string) (time.Time, error) {
	body, err := h.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	return ParseTime(body)
}
