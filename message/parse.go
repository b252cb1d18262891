package message

import (
	"bytes"
	"errors"
	"strings"

	"github.com/emlkit/go-emlspan/message/header"
)

// DefaultMaxDepth is how deep Parse will recurse into nested multipart
// messages by default.
const DefaultMaxDepth = 10

// ErrNoBoundary is returned by Parse when a multipart Content-type is
// missing its boundary parameter. The partially parsed message is still
// returned as a leaf.
var ErrNoBoundary = errors.New("the boundary parameter is missing from Content-type")

// The header/body separators recognized, most common first. Each is a
// doubled line break; the break style is the first half.
var splits = [][]byte{
	[]byte("\x0d\x0a\x0d\x0a"), // \r\n\r\n
	[]byte("\x0a\x0d\x0a\x0d"), // \n\r\n\r, extremely unlikely
	[]byte("\x0a\x0a"),         // \n\n
	[]byte("\x0d\x0d"),         // \r\r
}

type parser struct {
	maxDepth int
}

// Option modifies how Parse works.
type Option func(*parser)

// WithMaxDepth sets how deep the parser recurses into nested multiparts.
func WithMaxDepth(n int) Option {
	return func(p *parser) { p.maxDepth = n }
}

// WithoutMultipart disables multipart parsing entirely; Parse will always
// return a *Leaf.
func WithoutMultipart() Option {
	return func(p *parser) { p.maxDepth = 0 }
}

// Parse parses raw email bytes into a part tree. The returned Part is
// always usable even when an error is returned; errors flag structural
// trouble (such as a missing boundary) that kept a multipart from being
// broken into sub-parts.
func Parse(raw []byte, opts ...Option) (Part, error) {
	p := &parser{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p.parseNode(raw, 0, 0, false)
}

// splitHeadBody locates the header/body separator. It returns the header
// bytes (each field line keeps its own line break), the detected break
// style, the separator bytes (empty when the message has no body), and the
// offset where the body begins.
func splitHeadBody(raw []byte, subpart bool) (hdr []byte, lb header.Break, sep []byte, bodyStart int) {
	if subpart {
		// a sub-part may have an empty header: it begins with a bare break
		for _, s := range splits {
			half := s[:len(s)/2]
			if bytes.HasPrefix(raw, half) {
				return nil, header.Break(half), half, len(half)
			}
		}
	}

	pos, splitLen := -1, 0
	for _, s := range splits {
		if ix := bytes.Index(raw, s); ix >= 0 && (pos < 0 || ix < pos) {
			pos, splitLen = ix, len(s)
			lb = header.Break(s[:len(s)/2])
		}
	}
	if pos >= 0 {
		half := splitLen / 2
		return raw[:pos+half], lb, raw[pos+half : pos+splitLen], pos + splitLen
	}

	// no separator: the entire content is header
	switch {
	case bytes.Contains(raw, header.CRLF.Bytes()):
		lb = header.CRLF
	case bytes.Contains(raw, header.LF.Bytes()):
		lb = header.LF
	case bytes.Contains(raw, header.CR.Bytes()):
		lb = header.CR
	default:
		lb = header.LF
	}
	return raw, lb, nil, len(raw)
}

// parseNode parses one part. base is the absolute offset of raw within
// the originally parsed input, which lets leaves keep their raw
// coordinates for offset mapping.
func (p *parser) parseNode(raw []byte, base, depth int, subpart bool) (Part, error) {
	hdr, lb, sep, bodyStart := splitHeadBody(raw, subpart)
	h := header.Parse(hdr, lb)
	h.SetBreak(lb)

	leaf := &Leaf{
		Header:      *h,
		sep:         sep,
		body:        raw[bodyStart:],
		hasOffsets:  true,
		headerStart: base,
		bodyStart:   base + bodyStart,
		bodyEnd:     base + len(raw),
	}

	if depth >= p.maxDepth {
		return leaf, nil
	}

	mt, err := h.MediaType()
	if err != nil || !strings.HasPrefix(mt, "multipart/") {
		return leaf, nil
	}

	boundary, err := h.Boundary()
	if err != nil || boundary == "" {
		return leaf, ErrNoBoundary
	}

	prefix, suffix, segs, ok := splitBoundaries(raw[bodyStart:], boundary, lb.Bytes())
	if !ok {
		// boundary never appears in the body; keep the part opaque
		return leaf, nil
	}

	parts := make([]Part, 0, len(segs))
	for _, seg := range segs {
		child, err := p.parseNode(seg.data, base+bodyStart+seg.off, depth+1, true)
		if err != nil {
			// recover the original opaque part rather than return a
			// half-parsed tree
			return leaf, err
		}
		parts = append(parts, child)
	}

	return &Multipart{
		Header:   *h,
		sep:      sep,
		boundary: boundary,
		prefix:   prefix,
		suffix:   suffix,
		parts:    parts,
	}, nil
}

// segment is one part's raw bytes and its offset within the body that was
// split.
type segment struct {
	off  int
	data []byte
}

// splitBoundaries splits a multipart body on its boundary lines.
//
// The initial boundary is "--boundary" at the very start of the body or
// preceded by a line break; middle boundaries are framed by breaks on both
// sides; the final boundary is "--boundary--". The break before a middle
// boundary belongs to the boundary, not the preceding part, and everything
// after the final boundary (its trailing break included) is the suffix. A
// nil suffix records that no final boundary existed.
func splitBoundaries(body []byte, boundary string, br []byte) (prefix, suffix []byte, segs []segment, ok bool) {
	sb := []byte("--" + boundary)
	first := append(append([]byte{}, sb...), br...)
	mb := append(append(append([]byte{}, br...), sb...), br...)
	eb := append(append(append([]byte{}, br...), sb...), []byte("--")...)

	var pos int
	if bytes.HasPrefix(body, first) {
		prefix = []byte{}
		pos = len(first)
	} else if ix := bytes.Index(body, mb); ix >= 0 {
		prefix = body[:ix+len(br)]
		pos = ix + len(mb)
	} else {
		return nil, nil, nil, false
	}

	for {
		ix := bytes.Index(body[pos:], mb)
		if ix < 0 {
			break
		}
		segs = append(segs, segment{pos, body[pos : pos+ix]})
		pos += ix + len(mb)
	}

	rest := body[pos:]
	if ix := bytes.Index(rest, eb); ix >= 0 {
		segs = append(segs, segment{pos, rest[:ix]})
		suffix = rest[ix+len(eb):]
	} else {
		segs = append(segs, segment{pos, rest})
		suffix = nil
	}

	return prefix, suffix, segs, true
}
