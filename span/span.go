// Package span defines the annotation span contract shared by every
// component of this library: a span's stored text must equal the codepoint
// slice of its section's content, exactly, at all times. Extraction,
// repair, migration, and reassembly all exist to create or preserve that
// invariant.
package span

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Errors returned when validating spans.
var (
	// ErrRange is returned when a span's offsets are out of order or out
	// of bounds for its section content.
	ErrRange = errors.New("span offsets out of range")

	// ErrNoSection is returned when a span names a section index that
	// does not exist in the document.
	ErrNoSection = errors.New("span names a missing section")
)

// MismatchError reports that a span's stored text no longer equals the
// slice of its section content. Both values are truncated for display;
// neither is ever coerced to the other.
type MismatchError struct {
	Want string // stored text
	Got  string // what the offsets actually slice
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("span text mismatch: stored %s, sliced %s",
		Truncate(e.Want, 60), Truncate(e.Got, 60))
}

// Truncate shortens a string for display, quoting it and appending an
// ellipsis when it exceeds n codepoints.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", string(r[:n]))
}

// Span is one annotated substring of a section. Offsets are codepoint
// offsets into the section's content. The JSON field names follow the
// camelCase convention of the draft and QA overlay records.
type Span struct {
	ID           uuid.UUID `json:"id,omitempty"`
	SectionIndex int       `json:"sectionIndex"`
	Start        int       `json:"startOffset"`
	End          int       `json:"endOffset"`
	Text         string    `json:"originalText"`
	ClassName    string    `json:"className,omitempty"`
	Tag          string    `json:"tag,omitempty"`
}

// Replacement returns the text a redaction splices in place of the span:
// the explicit tag when one is set, otherwise the class name in brackets.
func (s Span) Replacement() string {
	if s.Tag != "" {
		return s.Tag
	}
	return "[" + s.ClassName + "]"
}

// Slice returns content[s.Start:s.End] by codepoints. ok is false when
// the offsets do not fit the content.
func (s Span) Slice(content string) (string, bool) {
	r := []rune(content)
	if s.Start < 0 || s.End < s.Start || s.End > len(r) {
		return "", false
	}
	return string(r[s.Start:s.End]), true
}

// Verify checks the span invariant against its section content: offsets
// in range, start strictly before end, and the codepoint slice equal to
// the stored text. A mismatch is a data-integrity finding for the caller
// to report, never something to paper over.
func (s Span) Verify(content string) error {
	if s.Start < 0 || s.Start >= s.End {
		return fmt.Errorf("%w: [%d, %d)", ErrRange, s.Start, s.End)
	}
	got, ok := s.Slice(content)
	if !ok {
		return fmt.Errorf("%w: [%d, %d) in %d codepoints",
			ErrRange, s.Start, s.End, len([]rune(content)))
	}
	if got != s.Text {
		return &MismatchError{Want: s.Text, Got: got}
	}
	return nil
}

// BySection groups spans by their section index.
func BySection(spans []Span) map[int][]Span {
	m := make(map[int][]Span)
	for _, s := range spans {
		m[s.SectionIndex] = append(m[s.SectionIndex], s)
	}
	return m
}
