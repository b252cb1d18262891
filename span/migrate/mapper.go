// Package migrate converts legacy flat-string annotation offsets into
// per-section codepoint offsets.
//
// The legacy convention stored offsets into one "normalized" string: the
// whole .eml with every base64 and quoted-printable text part decoded in
// place, the Content-Transfer-Encoding field rewritten to 8bit, and all
// carriage returns removed. Mapper rebuilds that string from the raw
// message and, for callers holding offsets into the raw (still encoded)
// string, provides the monotonic step function that carries a raw offset
// into the normalized string. MigrateDocument then assigns normalized
// offsets to sections.
package migrate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/emlkit/go-emlspan/message"
	"github.com/emlkit/go-emlspan/message/charset"
	"github.com/emlkit/go-emlspan/message/header"
	"github.com/emlkit/go-emlspan/message/transfer"
)

// cteReplacement is what the normalized form carries in place of the
// original Content-Transfer-Encoding field body.
const cteReplacement = "Content-Transfer-Encoding: 8bit"

type eventKind int

const (
	cteEvent eventKind = iota
	bodyEvent
)

// event is one re-encoded region of the raw message, in codepoint
// coordinates of the \r-stripped raw string. Offsets to the left of an
// event pass through unchanged; offsets inside it are translated; offsets
// to the right shift by the accumulated length delta.
type event struct {
	kind  eventKind
	start int
	end   int

	// cte events
	replLen int

	// body events
	decodedLen   int   // codepoint length of the decoded, \r-stripped text
	qpTable      []int // non-nil for quoted-printable bodies
	contentStart int   // first non-whitespace codepoint within the body
	contentEnd   int
}

// Mapper translates offsets from the raw .eml string into the normalized
// flat string the legacy annotations were recorded against.
type Mapper struct {
	flat   string
	events []event
}

// NewMapper parses raw, decodes its encoded text parts, and prepares the
// offset translation table. A message with no encoded text parts gets an
// identity mapping.
func NewMapper(raw string) *Mapper {
	msg, _ := message.Parse([]byte(raw))

	type replacement struct {
		bodyStart, bodyEnd int // byte offsets in raw
		cteStart, cteEnd   int // byte offsets of the CTE field, break excluded
		decoded            string
		isQP               bool
		charset            string
	}
	var reps []replacement

	_ = message.Walk(msg, func(path []int, leaf *message.Leaf) error {
		h := leaf.GetHeader()
		mt, err := h.MediaType()
		if err != nil || !strings.HasPrefix(mt, "text/") {
			return nil
		}
		cte, err := h.TransferEncoding()
		if err != nil || (cte != transfer.Base64 && cte != transfer.QuotedPrintable) {
			return nil
		}

		bodyStart, bodyEnd, ok := leaf.RawBodyRange()
		if !ok {
			return nil
		}
		cteStart, cteEnd, ok := cteFieldRange(leaf)
		if !ok {
			return nil
		}

		cs, err := h.Charset()
		if err != nil {
			cs = "utf-8"
		}
		decoded, err := transfer.Decode(cte, leaf.Body())
		if err != nil {
			return nil
		}

		reps = append(reps, replacement{
			bodyStart: bodyStart,
			bodyEnd:   bodyEnd,
			cteStart:  cteStart,
			cteEnd:    cteEnd,
			decoded:   charset.Decode(cs, decoded),
			isQP:      cte == transfer.QuotedPrintable,
			charset:   cs,
		})
		return nil
	})

	if len(reps) == 0 {
		return &Mapper{flat: strings.ReplaceAll(raw, "\r", "")}
	}

	// splice decoded text and the 8bit CTE field in, right to left, so
	// offsets of earlier replacements stay valid
	sort.Slice(reps, func(i, j int) bool { return reps[i].bodyStart > reps[j].bodyStart })
	normalized := raw
	for _, r := range reps {
		normalized = normalized[:r.bodyStart] + r.decoded + normalized[r.bodyEnd:]
		normalized = normalized[:r.cteStart] + cteReplacement + normalized[r.cteEnd:]
	}

	crBefore := crTable(raw)
	stripped := func(byteOff int) int {
		cp := utf8.RuneCountInString(raw[:byteOff])
		return cp - crCount(crBefore, cp)
	}
	rawStripped := strings.ReplaceAll(raw, "\r", "")
	rawRunes := []rune(rawStripped)

	events := make([]event, 0, 2*len(reps))
	for _, r := range reps {
		events = append(events, event{
			kind:    cteEvent,
			start:   stripped(r.cteStart),
			end:     stripped(r.cteEnd),
			replLen: len(cteReplacement),
		})

		ev := event{
			kind:       bodyEvent,
			start:      stripped(r.bodyStart),
			end:        stripped(r.bodyEnd),
			decodedLen: utf8.RuneCountInString(strings.ReplaceAll(r.decoded, "\r", "")),
		}
		if r.isQP {
			// the decoder works on the whitespace-trimmed body, so the
			// table is anchored at the first content codepoint
			body := string(rawRunes[ev.start:ev.end])
			trimmed := strings.TrimSpace(body)
			ev.contentStart = utf8.RuneCountInString(body) -
				utf8.RuneCountInString(strings.TrimLeftFunc(body, unicode.IsSpace))
			ev.contentEnd = ev.contentStart + utf8.RuneCountInString(trimmed)
			ev.qpTable = qpOffsetTable(trimmed, r.charset)
		}
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].start < events[j].start })

	return &Mapper{
		flat:   strings.ReplaceAll(normalized, "\r", ""),
		events: events,
	}
}

// Flat returns the normalized flat string: every encoded text part
// decoded in place, carriage returns removed. This is the string legacy
// offsets index into.
func (m *Mapper) Flat() string {
	return m.flat
}

// Map translates a codepoint offset in the \r-stripped raw string into a
// codepoint offset in Flat(). Inside a rewritten header field the offset
// snaps to the field start. Inside a base64 body the translation is
// proportional, since base64 admits no per-character correspondence; a
// span mapped through it must still be verified against its section text
// before being trusted.
func (m *Mapper) Map(rawOffset int) int {
	delta := 0
	for _, ev := range m.events {
		if rawOffset < ev.start {
			return rawOffset - delta
		}

		switch ev.kind {
		case cteEvent:
			if rawOffset < ev.end {
				return ev.start - delta
			}
			delta += (ev.end - ev.start) - ev.replLen

		case bodyEvent:
			if rawOffset <= ev.end {
				local := rawOffset - ev.start
				return ev.start - delta + ev.decodedOffset(local)
			}
			delta += (ev.end - ev.start) - ev.decodedLen
		}
	}
	return rawOffset - delta
}

// decodedOffset translates a codepoint offset local to the encoded body
// into an offset in the decoded text.
func (ev event) decodedOffset(local int) int {
	if ev.qpTable != nil {
		switch {
		case local < ev.contentStart:
			return 0
		case local >= ev.contentEnd:
			return ev.decodedLen
		default:
			i := local - ev.contentStart
			if i > len(ev.qpTable)-1 {
				i = len(ev.qpTable) - 1
			}
			d := ev.qpTable[i]
			if d > ev.decodedLen {
				d = ev.decodedLen
			}
			return d
		}
	}

	bodyLen := ev.end - ev.start
	if bodyLen < 1 {
		bodyLen = 1
	}
	d := local * ev.decodedLen / bodyLen
	if d > ev.decodedLen {
		d = ev.decodedLen
	}
	return d
}

// cteFieldRange locates the Content-Transfer-Encoding field of a leaf in
// the raw input, trailing line break excluded.
func cteFieldRange(leaf *message.Leaf) (start, end int, ok bool) {
	hdrStart, ok := leaf.RawHeaderStart()
	if !ok {
		return 0, 0, false
	}
	off := hdrStart
	for _, f := range leaf.GetHeader().Fields() {
		raw := f.Raw()
		if raw == nil {
			return 0, 0, false
		}
		if strings.EqualFold(f.Name(), header.ContentTransferEncoding) {
			trimmed := len(raw)
			for trimmed > 0 && (raw[trimmed-1] == '\r' || raw[trimmed-1] == '\n') {
				trimmed--
			}
			return off, off + trimmed, true
		}
		off += len(raw)
	}
	return 0, 0, false
}

// crTable returns, for the codepoints of s in order, the positions of
// every '\r', as codepoint indices.
func crTable(s string) []int {
	var crs []int
	i := 0
	for _, r := range s {
		if r == '\r' {
			crs = append(crs, i)
		}
		i++
	}
	return crs
}

// crCount returns how many recorded '\r' positions precede cp.
func crCount(crs []int, cp int) int {
	return sort.SearchInts(crs, cp)
}

// isHex reports whether c is an ASCII hexadecimal digit.
func isHex(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// qpOffsetTable maps each codepoint position of a \r-stripped,
// whitespace-trimmed quoted-printable body to the codepoint position it
// decodes to. The table has one extra entry for the end position.
//
// The mapping is built in two passes: raw position to decoded byte, then
// decoded byte to decoded codepoint (hex escapes like =E2=80=A2 decode to
// several bytes of one character in multi-byte charsets).
func qpOffsetTable(body, cs string) []int {
	runes := []rune(body)
	n := len(runes)

	byteTable := make([]int, n+1)
	i, bytePos := 0, 0
	for i < n {
		byteTable[i] = bytePos
		switch {
		case runes[i] == '=' && i+1 < n && runes[i+1] == '\n':
			// soft line break decodes to nothing
			byteTable[i+1] = bytePos
			i += 2
		case runes[i] == '=' && i+2 < n && isHex(runes[i+1]) && isHex(runes[i+2]):
			byteTable[i+1] = bytePos
			byteTable[i+2] = bytePos
			i += 3
			bytePos++
		default:
			// literal character, malformed or trailing '=' included
			i++
			bytePos++
		}
	}
	byteTable[n] = bytePos

	decoded, _ := transfer.Decode(transfer.QuotedPrintable, []byte(body))
	text := charset.Decode(cs, decoded)

	byteToChar := make([]int, len(decoded)+1)
	charIdx, bp := 0, 0
	for _, r := range text {
		for k := 0; k < charset.EncodedLen(cs, r); k++ {
			if bp < len(byteToChar) {
				byteToChar[bp] = charIdx
			}
			bp++
		}
		charIdx++
	}
	for bp <= len(decoded) {
		if bp < len(byteToChar) {
			byteToChar[bp] = charIdx
		}
		bp++
	}

	table := make([]int, n+1)
	for i := range table {
		b := byteTable[i]
		if b > len(decoded) {
			b = len(decoded)
		}
		if b < len(byteToChar) {
			table[i] = byteToChar[b]
		} else {
			table[i] = charIdx
		}
	}
	return table
}
