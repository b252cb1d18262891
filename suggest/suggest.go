// Package suggest proposes candidate PII spans for the header section by
// parsing its address-bearing fields. Proposals are hints for an
// annotator, not decisions: every span returned has been verified to
// slice its exact text from the section content, and anything that
// cannot be located precisely is silently omitted.
package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zostay/go-addr/pkg/addr"

	"github.com/emlkit/go-emlspan/message/header"
	"github.com/emlkit/go-emlspan/span"
)

// Classes assigned to proposed spans.
const (
	ClassEmail = "EMAIL_ADDRESS"
	ClassName  = "PERSON_NAME"
)

// addressFields are the header fields whose bodies are parsed as address
// lists.
var addressFields = []string{
	header.From,
	header.To,
	header.Cc,
	header.Bcc,
	header.ReplyTo,
	header.Sender,
}

// Header proposes spans for a header section. content must be the
// section's content as produced by section.Extract (the full header
// block, carriage returns removed). Overlapping proposals are resolved
// in favor of the earliest, longest span.
func Header(content string) []span.Span {
	h := header.Parse([]byte(content), header.LF)

	type candidate struct {
		text  string
		class string
	}
	var cands []candidate
	seen := map[candidate]bool{}
	add := func(text, class string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		c := candidate{text, class}
		if !seen[c] {
			seen[c] = true
			cands = append(cands, c)
		}
	}

	for _, name := range addressFields {
		for _, body := range h.GetAll(name) {
			al, err := addr.ParseEmailAddressList(body)
			if err != nil {
				continue
			}
			for _, a := range al {
				add(a.Address(), ClassEmail)
				add(displayName(a.OriginalString()), ClassName)
			}
		}
	}

	// Received trace fields carry addresses in angle brackets
	for _, body := range h.GetAll(header.Received) {
		for _, tok := range angleTokens(body) {
			if _, err := addr.ParseEmailAddrSpec(tok); err == nil {
				add(tok, ClassEmail)
			}
		}
	}

	var spans []span.Span
	for _, c := range cands {
		spans = append(spans, locate(content, c.text, c.class)...)
	}
	return dedupe(spans, content)
}

// displayName extracts the display-name phrase from an address's original
// text. The parsed DisplayName is not used because it normalizes interior
// whitespace, so it could never match the header content verbatim.
func displayName(orig string) string {
	open := strings.LastIndexByte(orig, '<')
	if open < 0 {
		return ""
	}
	name := strings.TrimSpace(orig[:open])
	return strings.Trim(name, `"`)
}

// angleTokens extracts the <...> bracketed tokens of a field body.
func angleTokens(body string) []string {
	var toks []string
	for {
		open := strings.IndexByte(body, '<')
		if open < 0 {
			break
		}
		shut := strings.IndexByte(body[open:], '>')
		if shut < 0 {
			break
		}
		toks = append(toks, body[open+1:open+shut])
		body = body[open+shut+1:]
	}
	return toks
}

// locate finds every occurrence of text in content and builds a span for
// each, offsets in codepoints.
func locate(content, text, class string) []span.Span {
	var spans []span.Span
	textLen := utf8.RuneCountInString(text)
	from := 0
	for {
		ix := strings.Index(content[from:], text)
		if ix < 0 {
			break
		}
		bytePos := from + ix
		start := utf8.RuneCountInString(content[:bytePos])
		spans = append(spans, span.Span{
			SectionIndex: 0,
			Start:        start,
			End:          start + textLen,
			Text:         text,
			ClassName:    class,
		})
		from = bytePos + len(text)
	}
	return spans
}

// dedupe drops proposals that overlap an earlier, longer one and
// verifies each survivor against the content.
func dedupe(spans []span.Span, content string) []span.Span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})

	var out []span.Span
	lastEnd := -1
	for _, s := range spans {
		if s.Start < lastEnd {
			continue
		}
		if err := s.Verify(content); err != nil {
			continue
		}
		out = append(out, s)
		lastEnd = s.End
	}
	return out
}
