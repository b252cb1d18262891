// Package message parses raw email into an in-memory part tree and writes
// it back out without structural drift.
//
// A parsed message is either a *Leaf (header plus opaque body bytes) or a
// *Multipart (header plus sub-parts). Boundary text, the bytes before the
// first boundary and after the last one, header field order, folded lines,
// and the line-break style are all preserved, so an unmodified message
// round-trips byte-for-byte. That property is what makes offset math and
// redaction splicing safe downstream.
package message

import (
	"io"

	"github.com/emlkit/go-emlspan/message/header"
)

// Part is one node of a parsed message: a *Leaf or a *Multipart.
type Part interface {
	io.WriterTo

	// IsMultipart reports whether this part has sub-parts. Body is only
	// meaningful when it returns false; Parts only when it returns true.
	IsMultipart() bool

	// GetHeader returns the header of this part.
	GetHeader() *header.Header

	// Parts returns the sub-parts of a multipart node, or nil for a leaf.
	Parts() []Part
}

// Leaf is a non-multipart node. Its body holds the payload exactly as it
// appeared on the wire, transfer encoding included.
type Leaf struct {
	header.Header

	// sep is the blank-line separator between header and body, empty when
	// the message had no body at all.
	sep []byte

	body []byte

	// raw coordinates of this part within the originally parsed input;
	// hasOffsets is false for leaves built in memory.
	hasOffsets  bool
	headerStart int
	bodyStart   int
	bodyEnd     int
}

// IsMultipart always returns false.
func (l *Leaf) IsMultipart() bool { return false }

// GetHeader returns the header of the leaf.
func (l *Leaf) GetHeader() *header.Header { return &l.Header }

// Parts always returns nil.
func (l *Leaf) Parts() []Part { return nil }

// Body returns the payload bytes as they appeared on the wire.
func (l *Leaf) Body() []byte { return l.body }

// SetBody replaces the payload bytes. The leaf's raw offsets no longer
// describe the body, so they are cleared.
func (l *Leaf) SetBody(b []byte) {
	l.body = b
	if len(l.sep) == 0 {
		l.sep = l.Break().Bytes()
	}
	l.hasOffsets = false
}

// RawBodyRange returns the [start, end) byte range this leaf's body
// occupied in the originally parsed input. ok is false when the leaf was
// not produced by Parse or has been modified since.
func (l *Leaf) RawBodyRange() (start, end int, ok bool) {
	return l.bodyStart, l.bodyEnd, l.hasOffsets
}

// RawHeaderStart returns the byte offset of this leaf's header in the
// originally parsed input.
func (l *Leaf) RawHeaderStart() (int, bool) {
	return l.headerStart, l.hasOffsets
}

// WriteTo writes the leaf's header, separator, and body.
func (l *Leaf) WriteTo(w io.Writer) (int64, error) {
	var n int64
	hn, err := w.Write(l.Header.Bytes())
	n += int64(hn)
	if err != nil {
		return n, err
	}

	sn, err := w.Write(l.sep)
	n += int64(sn)
	if err != nil {
		return n, err
	}

	bn, err := w.Write(l.body)
	n += int64(bn)
	return n, err
}

// Multipart is a node with sub-parts.
//
// prefix holds the bytes between the blank line and the first boundary
// (usually empty or a "this is a multipart message" note) and always ends
// with a line break when non-empty. suffix holds everything after the
// final "--boundary--" marker; a nil suffix means the message had no final
// boundary and none will be written.
type Multipart struct {
	header.Header

	sep      []byte
	boundary string
	prefix   []byte
	suffix   []byte
	parts    []Part
}

// IsMultipart always returns true.
func (m *Multipart) IsMultipart() bool { return true }

// GetHeader returns the header of the multipart node.
func (m *Multipart) GetHeader() *header.Header { return &m.Header }

// Parts returns the sub-parts in order.
func (m *Multipart) Parts() []Part { return m.parts }

// WriteTo writes the header, prefix, each part framed by its boundary, the
// final boundary when one existed, and the suffix.
func (m *Multipart) WriteTo(w io.Writer) (int64, error) {
	br := m.Break().Bytes()

	var n int64
	hn, err := w.Write(m.Header.Bytes())
	n += int64(hn)
	if err != nil {
		return n, err
	}

	sn, err := w.Write(m.sep)
	n += int64(sn)
	if err != nil {
		return n, err
	}

	pn, err := w.Write(m.prefix)
	n += int64(pn)
	if err != nil {
		return n, err
	}

	for i, part := range m.parts {
		if i > 0 {
			bn, err := w.Write(br)
			n += int64(bn)
			if err != nil {
				return n, err
			}
		}

		bn, err := io.WriteString(w, "--"+m.boundary)
		n += int64(bn)
		if err != nil {
			return n, err
		}
		bn, err = w.Write(br)
		n += int64(bn)
		if err != nil {
			return n, err
		}

		wn, err := part.WriteTo(w)
		n += wn
		if err != nil {
			return n, err
		}
	}

	if m.suffix != nil {
		bn, err := w.Write(br)
		n += int64(bn)
		if err != nil {
			return n, err
		}
		bn, err = io.WriteString(w, "--"+m.boundary+"--")
		n += int64(bn)
		if err != nil {
			return n, err
		}
		bn, err = w.Write(m.suffix)
		n += int64(bn)
		if err != nil {
			return n, err
		}
	}

	return n, nil
}
