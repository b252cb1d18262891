package span

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Set is a versioned per-document span collection. Draft and QA overlays
// are stored as one Set per document; saving always produces a new version
// rather than mutating the previous one.
type Set struct {
	Document string    `json:"document"`
	Version  int       `json:"version"`
	SavedAt  time.Time `json:"savedAt,omitempty"`
	Spans    []Span    `json:"spans"`
}

// NewSet returns an empty version-1 set for a document.
func NewSet(document string) *Set {
	return &Set{Document: document, Version: 1}
}

// Add appends a span, assigning it an ID when it has none.
func (s *Set) Add(sp Span) {
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	s.Spans = append(s.Spans, sp)
}

// Next returns a copy of the set with the given spans and a bumped
// version. The receiver is left untouched.
func (s *Set) Next(spans []Span) *Set {
	return &Set{
		Document: s.Document,
		Version:  s.Version + 1,
		SavedAt:  time.Now().UTC(),
		Spans:    spans,
	}
}

// BySection groups the set's spans by section index.
func (s *Set) BySection() map[int][]Span {
	return BySection(s.Spans)
}

// Marshal encodes the set as indented JSON.
func (s *Set) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSet decodes a span set from JSON. A bare span array is also
// accepted and wrapped in a version-1 set, matching the oldest overlay
// files still in circulation.
func UnmarshalSet(data []byte) (*Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err == nil && (s.Version > 0 || s.Document != "") {
		return &s, nil
	}
	var spans []Span
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("decoding span set: %w", err)
	}
	return &Set{Version: 1, Spans: spans}, nil
}
