// Package section flattens a raw email into its annotatable sections.
//
// Section 0 is always the header block (everything before the first blank
// line). Every decoded text/* MIME leaf becomes one body section, in
// document order. Section content never contains a carriage return; all
// annotation offsets in this system are codepoint offsets into that
// normalized content.
package section

import (
	"fmt"
	"strings"

	"github.com/emlkit/go-emlspan/message"
	"github.com/emlkit/go-emlspan/message/charset"
	"github.com/emlkit/go-emlspan/message/transfer"
)

// Section types. Body sections of a text subtype other than plain or html
// use TypeForSubtype.
const (
	Headers   = "HEADERS"
	TextPlain = "TEXT_PLAIN"
	TextHTML  = "TEXT_HTML"
)

// Labels used for the first section of each type; later sections of the
// same type get a " (n)" suffix.
const (
	headersLabel   = "Email Headers"
	textPlainLabel = "Text Body"
	textHTMLLabel  = "HTML Body"
)

// Section is one annotatable unit of an email: the header block or one
// decoded text leaf.
type Section struct {
	// Index is the 0-based position of the section; 0 is always headers.
	Index int

	// Type is one of the section type constants or TypeForSubtype output.
	Type string

	// Label is the human display name, disambiguated with a counter when
	// several sections share a type.
	Label string

	// Content is the decoded text with all carriage returns stripped.
	// Annotation offsets are codepoint offsets into this string.
	Content string

	// Charset the payload was decoded with; reused for re-encoding.
	Charset string

	// TransferEncoding is the original Content-transfer-encoding of the
	// leaf: 7bit, 8bit, base64, or quoted-printable.
	TransferEncoding string

	// MIMEPath locates the leaf in the original MIME tree as the sequence
	// of child indices taken to reach it. Empty for the header section
	// and for the body of a non-multipart message.
	MIMEPath []int
}

// TypeForSubtype builds the section type for a text subtype, e.g.
// "enriched" becomes "TEXT_ENRICHED".
func TypeForSubtype(subtype string) string {
	return "TEXT_" + strings.ToUpper(subtype)
}

// Extract parses raw email content into its ordered sections. The header
// section is always present, even for an empty message; body sections
// exist for each text/* leaf that could be located. Decode problems
// degrade to replacement characters rather than failing the document, so
// extraction always produces a usable result.
func Extract(raw string) []Section {
	sections := make([]Section, 0, 4)
	sections = append(sections, Section{
		Index:            0,
		Type:             Headers,
		Label:            headersLabel,
		Content:          extractHeaderContent(raw),
		Charset:          "utf-8",
		TransferEncoding: transfer.Bit7,
	})

	// a multipart with a missing boundary comes back as an opaque leaf;
	// its media type is not text/* so it simply yields no body sections
	msg, _ := message.Parse([]byte(raw))

	typeCounts := make(map[string]int, 2)
	_ = message.Walk(msg, func(path []int, leaf *message.Leaf) error {
		s, ok := leafSection(path, leaf)
		if !ok {
			return nil
		}

		typeCounts[s.Type]++
		if n := typeCounts[s.Type]; n > 1 {
			s.Label = fmt.Sprintf("%s (%d)", s.Label, n)
		}

		s.Index = len(sections)
		sections = append(sections, s)
		return nil
	})

	return sections
}

// ContentByIndex builds a lookup from section index to content, the shape
// the span repair and migration tools consume.
func ContentByIndex(sections []Section) map[int]string {
	m := make(map[int]string, len(sections))
	for _, s := range sections {
		m[s.Index] = s.Content
	}
	return m
}

// extractHeaderContent returns everything up to the first blank-line
// separator, keeping the line break that terminates the last header line,
// with carriage returns stripped. When no separator exists the entire
// content is headers.
func extractHeaderContent(raw string) string {
	if end, _, ok := HeaderSplit(raw); ok {
		return strings.ReplaceAll(raw[:end], "\r", "")
	}
	return strings.ReplaceAll(raw, "\r", "")
}

// HeaderSplit locates the first blank-line separator in raw content. It
// returns the end of the header block (just past the line break that
// terminates the last header line) and the start of the body (just past
// the blank line). ok is false when the content has no separator.
func HeaderSplit(raw string) (headerEnd, bodyStart int, ok bool) {
	pos, sepLen := -1, 0
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if ix := strings.Index(raw, sep); ix >= 0 && (pos < 0 || ix < pos) {
			pos, sepLen = ix, len(sep)
		}
	}
	if pos < 0 {
		return 0, 0, false
	}
	return pos + sepLen/2, pos + sepLen, true
}

// leafSection builds the section for a text/* leaf. Non-text leaves
// produce no section.
func leafSection(path []int, leaf *message.Leaf) (Section, bool) {
	mt, err := leaf.MediaType()
	if err != nil {
		// an untyped leaf defaults to text/plain per RFC 2045
		mt = "text/plain"
	}
	if !strings.HasPrefix(mt, "text/") {
		return Section{}, false
	}

	cs, err := leaf.Charset()
	if err != nil || cs == "" {
		cs = "utf-8"
	}

	cte, err := leaf.TransferEncoding()
	if err != nil || cte == "" {
		cte = transfer.Bit7
	}

	decoded, _ := transfer.Decode(cte, leaf.Body())
	content := strings.ReplaceAll(charset.Decode(cs, decoded), "\r", "")

	var sType, label string
	switch mt {
	case "text/plain":
		sType, label = TextPlain, textPlainLabel
	case "text/html":
		sType, label = TextHTML, textHTMLLabel
	default:
		subtype := mt[strings.IndexByte(mt, '/')+1:]
		sType = TypeForSubtype(subtype)
		label = subtype + " Body"
	}

	// copy the path; the walker reuses its backing array
	mimePath := append([]int(nil), path...)

	return Section{
		Type:             sType,
		Label:            label,
		Content:          content,
		Charset:          cs,
		TransferEncoding: cte,
		MIMEPath:         mimePath,
	}, true
}
