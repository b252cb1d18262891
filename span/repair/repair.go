// Package repair provides batch corrections for span collections:
// whitespace trimming, UTF-16 offset conversion, and read-only offset
// verification. Every correction is verified against the section content
// before it is adopted; a span that cannot be verified is reported and
// left untouched. Inputs are never mutated; each operation returns a
// fresh result list.
package repair

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/emlkit/go-emlspan/span"
)

// Outcome classifies what happened to one span during a repair pass.
type Outcome string

const (
	// OutcomeMatched means the span already satisfied its invariant and
	// needed no change.
	OutcomeMatched Outcome = "matched"

	// OutcomeCorrected means the span was adjusted and the adjusted form
	// verified against the section content.
	OutcomeCorrected Outcome = "corrected"

	// OutcomeFailed means the span could not be corrected; it is carried
	// through unchanged so nothing is silently lost.
	OutcomeFailed Outcome = "failed"

	// OutcomeDropped means the span was removed (all-whitespace text has
	// nothing left to annotate once trimmed).
	OutcomeDropped Outcome = "dropped"
)

// ErrAllWhitespace marks a span whose text is entirely whitespace.
var ErrAllWhitespace = errors.New("span text is all whitespace")

// Result is the per-span record of a repair pass.
type Result struct {
	Span    span.Span
	Outcome Outcome
	Err     error
}

// Report collects per-span results for one document.
type Report struct {
	Results []Result
}

// Count returns how many results carry the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Spans returns the surviving spans with corrections applied. Dropped
// spans are omitted; failed spans are included unchanged.
func (r *Report) Spans() []span.Span {
	out := make([]span.Span, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Outcome == OutcomeDropped {
			continue
		}
		out = append(out, res.Span)
	}
	return out
}

// Clean reports whether no result failed.
func (r *Report) Clean() bool {
	return r.Count(OutcomeFailed) == 0
}

// TrimWhitespace removes leading and trailing whitespace from each span's
// text, moving the offsets inward by the same number of codepoints. The
// trimmed span is adopted only when its new slice verifies against the
// section content. All-whitespace spans are dropped.
func TrimWhitespace(spans []span.Span, content map[int]string) *Report {
	rep := &Report{Results: make([]Result, 0, len(spans))}
	for _, s := range spans {
		rep.Results = append(rep.Results, trimOne(s, content))
	}
	return rep
}

func trimOne(s span.Span, content map[int]string) Result {
	stripped := strings.TrimSpace(s.Text)
	if stripped == s.Text {
		return Result{Span: s, Outcome: OutcomeMatched}
	}
	if stripped == "" {
		return Result{Span: s, Outcome: OutcomeDropped, Err: ErrAllWhitespace}
	}

	runes := []rune(s.Text)
	leading := len(runes) - len([]rune(strings.TrimLeftFunc(s.Text, unicode.IsSpace)))
	trailing := len(runes) - len([]rune(strings.TrimRightFunc(s.Text, unicode.IsSpace)))

	fixed := s
	fixed.Text = stripped
	fixed.Start = s.Start + leading
	fixed.End = s.End - trailing

	if err := verifyOne(fixed, content); err != nil {
		return Result{Span: s, Outcome: OutcomeFailed, Err: err}
	}
	return Result{Span: fixed, Outcome: OutcomeCorrected}
}

// RepairUTF16 converts spans whose offsets were recorded in UTF-16 code
// units (the convention of browser selection APIs) into codepoint
// offsets. A span is corrected only when the converted range slices to
// exactly its stored text; a span whose offsets already verify is left
// alone, and anything else is flagged as failed.
func RepairUTF16(spans []span.Span, content map[int]string) *Report {
	rep := &Report{Results: make([]Result, 0, len(spans))}
	for _, s := range spans {
		rep.Results = append(rep.Results, repairUTF16One(s, content))
	}
	return rep
}

func repairUTF16One(s span.Span, content map[int]string) Result {
	c, ok := content[s.SectionIndex]
	if !ok {
		return Result{
			Span:    s,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%w: %d", span.ErrNoSection, s.SectionIndex),
		}
	}

	newStart, err := span.UTF16ToCodepoint(c, s.Start)
	if err != nil {
		return Result{Span: s, Outcome: OutcomeFailed, Err: err}
	}
	newEnd, err := span.UTF16ToCodepoint(c, s.End)
	if err != nil {
		return Result{Span: s, Outcome: OutcomeFailed, Err: err}
	}

	// no astral-plane characters before the span: already codepoints
	if newStart == s.Start && newEnd == s.End {
		if err := s.Verify(c); err != nil {
			return Result{Span: s, Outcome: OutcomeFailed, Err: err}
		}
		return Result{Span: s, Outcome: OutcomeMatched}
	}

	fixed := s
	fixed.Start = newStart
	fixed.End = newEnd
	if err := fixed.Verify(c); err != nil {
		return Result{Span: s, Outcome: OutcomeFailed, Err: err}
	}
	return Result{Span: fixed, Outcome: OutcomeCorrected}
}

// Verify checks every span against its section content without changing
// anything. Results are OutcomeMatched or OutcomeFailed only.
func Verify(spans []span.Span, content map[int]string) *Report {
	rep := &Report{Results: make([]Result, 0, len(spans))}
	for _, s := range spans {
		if err := verifyOne(s, content); err != nil {
			rep.Results = append(rep.Results, Result{Span: s, Outcome: OutcomeFailed, Err: err})
			continue
		}
		rep.Results = append(rep.Results, Result{Span: s, Outcome: OutcomeMatched})
	}
	return rep
}

func verifyOne(s span.Span, content map[int]string) error {
	c, ok := content[s.SectionIndex]
	if !ok {
		return fmt.Errorf("%w: %d", span.ErrNoSection, s.SectionIndex)
	}
	return s.Verify(c)
}
