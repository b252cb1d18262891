// Package reassemble splices span replacements back into a raw email,
// producing a structurally valid message with the same MIME skeleton.
//
// The header section is rewritten by direct string splice so untouched
// header bytes survive exactly. Body sections are rewritten through the
// parsed part tree: each text leaf named by a section's MIME path gets
// its replaced content re-encoded with the section's original transfer
// encoding. Leaves no section names pass through unmodified.
package reassemble

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/emlkit/go-emlspan/message"
	"github.com/emlkit/go-emlspan/message/charset"
	"github.com/emlkit/go-emlspan/message/header"
	"github.com/emlkit/go-emlspan/message/transfer"
	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span"
)

// Deidentify replaces every span of every section with its replacement
// text and reassembles the email. sections must come from
// section.Extract on the same raw input; spansBySection maps section
// index to the spans to apply, usually span.BySection's output.
func Deidentify(raw string, sections []section.Section, spansBySection map[int][]span.Span) (string, error) {
	modified := spliceHeaders(raw, sections, spansBySection)

	msg, _ := message.Parse([]byte(modified))

	byPath := make(map[string]section.Section)
	for _, sec := range sections {
		if sec.Type == section.Headers {
			continue
		}
		byPath[pathKey(sec.MIMEPath)] = sec
	}

	err := message.Walk(msg, func(path []int, leaf *message.Leaf) error {
		sec, ok := byPath[pathKey(path)]
		if !ok {
			return nil
		}
		content := sec.Content
		if spans := spansBySection[sec.Index]; len(spans) > 0 {
			content = Replace(content, spans)
		}
		setLeafContent(leaf, content, sec)
		return nil
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("reassembling message: %w", err)
	}
	return buf.String(), nil
}

// spliceHeaders applies header-section replacements directly to the raw
// header block, restoring the original line-break style.
func spliceHeaders(raw string, sections []section.Section, spansBySection map[int][]span.Span) string {
	var headerSec *section.Section
	for i := range sections {
		if sections[i].Type == section.Headers {
			headerSec = &sections[i]
			break
		}
	}
	if headerSec == nil {
		return raw
	}
	spans := spansBySection[headerSec.Index]
	if len(spans) == 0 {
		return raw
	}

	headerEnd, _, ok := section.HeaderSplit(raw)
	if !ok {
		headerEnd = len(raw)
	}

	replaced := Replace(headerSec.Content, spans)
	if strings.Contains(raw, "\r\n") {
		replaced = strings.ReplaceAll(replaced, "\n", "\r\n")
	}
	return replaced + raw[headerEnd:]
}

// setLeafContent re-encodes text for a leaf with the section's charset
// and original transfer encoding, updating the Content-Transfer-Encoding
// field in place.
func setLeafContent(leaf *message.Leaf, text string, sec section.Section) {
	payload := charset.Encode(sec.Charset, text)

	var body []byte
	var cte string
	switch sec.TransferEncoding {
	case transfer.Base64:
		body = transfer.Encode(transfer.Base64, payload)
		cte = transfer.Base64
	case transfer.QuotedPrintable:
		body = transfer.Encode(transfer.QuotedPrintable, payload)
		cte = transfer.QuotedPrintable
	default:
		body = payload
		cte = transfer.Bit8
	}

	leaf.SetBody(body)

	// update the field in place; a part that never declared a transfer
	// encoding keeps its header untouched unless the new payload carries
	// bytes outside US-ASCII, which an implicit 7bit part may not
	h := leaf.GetHeader()
	_, err := h.Get(header.ContentTransferEncoding)
	if err == nil || eightBit(body) {
		h.Set(header.ContentTransferEncoding, cte)
	}
}

// eightBit reports whether the payload contains bytes outside US-ASCII.
func eightBit(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return true
		}
	}
	return false
}

// Replace splices each span's replacement into content, working from the
// last span backwards so earlier offsets stay valid. Offsets are
// codepoints. Spans that no longer fit the content are skipped rather
// than corrupting their neighbors.
func Replace(content string, spans []span.Span) string {
	sorted := make([]span.Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	runes := []rune(content)
	for _, s := range sorted {
		if s.Start < 0 || s.End < s.Start || s.End > len(runes) {
			continue
		}
		repl := []rune(s.Replacement())
		next := make([]rune, 0, len(runes)-(s.End-s.Start)+len(repl))
		next = append(next, runes[:s.Start]...)
		next = append(next, repl...)
		next = append(next, runes[s.End:]...)
		runes = next
	}
	return string(runes)
}

func pathKey(path []int) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", p)
	}
	return b.String()
}
