package header

import (
	"bytes"
	"fmt"
)

// Field is a single header field. The original raw line (including any
// folded continuation lines and the trailing line break) is retained so an
// untouched field round-trips byte-for-byte. Once the body is modified the
// raw form is discarded and the field renders as "Name: body".
type Field struct {
	name string
	body string
	raw  []byte
}

// NewField constructs a field that has no raw original form.
func NewField(name, body string) *Field {
	return &Field{name: name, body: body}
}

// Name returns the field name as it appeared in the message.
func (f *Field) Name() string {
	return f.name
}

// Body returns the field body with folding undone and surrounding
// whitespace trimmed.
func (f *Field) Body() string {
	return f.body
}

// SetBody replaces the field body. The raw original form is dropped, so
// the field will be rendered fresh on output.
func (f *Field) SetBody(body string) {
	f.body = body
	f.raw = nil
}

// Raw returns the original bytes of the field including folded lines and
// the trailing line break, or nil if the field was constructed or
// modified in memory.
func (f *Field) Raw() []byte {
	return f.raw
}

// Bytes renders the field, preferring the original raw bytes when the
// field is unmodified.
func (f *Field) Bytes(lb Break) []byte {
	if f.raw != nil {
		return f.raw
	}
	return []byte(fmt.Sprintf("%s: %s%s", f.name, f.body, lb))
}

// unfold removes line breaks from a folded field chunk, collapsing each
// break plus the following whitespace down to a single space.
func unfold(chunk, lb []byte) []byte {
	out := make([]byte, 0, len(chunk))
	lines := bytes.Split(chunk, lb)
	for i, line := range lines {
		if i > 0 {
			line = bytes.TrimLeft(line, " \t")
			if len(line) == 0 {
				continue
			}
			out = append(out, ' ')
		}
		out = append(out, line...)
	}
	return out
}

// parseField takes one complete header field line, including any folded
// continuation lines, and constructs a Field.
func parseField(raw []byte, lb []byte) *Field {
	chunk := bytes.TrimRight(raw, string(lb))

	off := 1
	ix := bytes.IndexByte(chunk, ':')
	if ix < 0 {
		ix = len(chunk)
		off = 0
	}

	name := string(bytes.TrimSpace(unfold(chunk[:ix], lb)))
	body := string(bytes.TrimSpace(unfold(chunk[ix+off:], lb)))

	return &Field{name: name, body: body, raw: raw}
}
