package migrate

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span"
)

// DefaultContextLen is how many codepoints of surrounding context are
// compared when ranking multiple text-search candidates.
const DefaultContextLen = 20

// Outcome classifies how a legacy span was migrated.
type Outcome string

const (
	// OutcomeMapped means the span's flat-string position fell inside a
	// located section and the slice verified against the stored text.
	OutcomeMapped Outcome = "mapped"

	// OutcomeTextSearch means position mapping failed but the stored text
	// was found at exactly one place, or the best of several candidates
	// was unambiguous.
	OutcomeTextSearch Outcome = "text-search"

	// OutcomeAmbiguous means the stored text was found in several places
	// and context scoring could not separate them. The first best
	// candidate is still adopted, but the result needs review.
	OutcomeAmbiguous Outcome = "ambiguous"

	// OutcomeFailed means neither strategy located the span. Its section
	// index is set to -1 so it is visibly unmapped.
	OutcomeFailed Outcome = "failed"
)

// Result records the migration of one legacy span.
type Result struct {
	Span    span.Span
	Outcome Outcome
}

// Report collects per-span results plus spans duplicated into sibling
// text bodies.
type Report struct {
	Results    []Result
	Duplicates []span.Span
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

// Spans returns the migrated spans followed by the duplicates. Failed
// spans are included with SectionIndex -1.
func (r *Report) Spans() []span.Span {
	out := make([]span.Span, 0, len(r.Results)+len(r.Duplicates))
	for _, res := range r.Results {
		out = append(out, res.Span)
	}
	out = append(out, r.Duplicates...)
	return out
}

// Options tune a migration run.
type Options struct {
	// ContextLen overrides DefaultContextLen when positive.
	ContextLen int

	// RawOffsets indicates the legacy offsets index the raw (still
	// encoded) flat string rather than the normalized one; they are
	// passed through the Mapper first.
	RawOffsets bool

	// Logger receives heuristic decisions (ambiguous match resolution).
	// Defaults to slog.Default.
	Logger *slog.Logger
}

func (o *Options) contextLen() int {
	if o != nil && o.ContextLen > 0 {
		return o.ContextLen
	}
	return DefaultContextLen
}

func (o *Options) logger() *slog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// sectionPos is a section's codepoint range within the flat string.
type sectionPos struct {
	index      int
	start, end int
}

// MigrateDocument converts legacy flat-string spans of one document into
// per-section spans. Position mapping is tried first and validated by
// text equality; text search across all sections is the fallback; spans
// that match nowhere come back with SectionIndex -1. Spans that land in a
// text body are additionally duplicated into sibling text bodies
// containing the same text, since those bodies usually carry the same
// content in another representation.
func MigrateDocument(raw string, legacy []span.Span, opts *Options) *Report {
	mapper := NewMapper(raw)
	flat := mapper.Flat()
	flatRunes := []rune(flat)

	sections := section.Extract(raw)
	contentMap := section.ContentByIndex(sections)
	positions := sectionPositions(flat, sections)

	rep := &Report{Results: make([]Result, 0, len(legacy))}
	for _, s := range legacy {
		if opts != nil && opts.RawOffsets {
			s.Start = mapper.Map(s.Start)
			s.End = mapper.Map(s.End)
		}
		rep.Results = append(rep.Results, migrateOne(s, flatRunes, sections, contentMap, positions, opts))
	}

	rep.Duplicates = duplicateAcrossBodies(rep.Results, sections, contentMap)
	return rep
}

func migrateOne(
	s span.Span,
	flat []rune,
	sections []section.Section,
	contentMap map[int]string,
	positions []sectionPos,
	opts *Options,
) Result {
	if idx, ls, le, ok := mapToSection(s.Start, s.End, positions); ok {
		mapped := s
		mapped.SectionIndex = idx
		mapped.Start = ls
		mapped.End = le
		if got, ok := mapped.Slice(contentMap[idx]); ok && got == s.Text {
			return Result{Span: mapped, Outcome: OutcomeMapped}
		}
	}

	if s.Text != "" {
		searchText := s.Text
		matches := searchSections(searchText, sections)
		if len(matches) == 0 && strings.Contains(searchText, "=\n") {
			// the stored text caught a quoted-printable soft break
			searchText = strings.ReplaceAll(searchText, "=\n", "")
			matches = searchSections(searchText, sections)
		}

		switch {
		case len(matches) == 1:
			return Result{Span: adopt(s, matches[0], searchText), Outcome: OutcomeTextSearch}
		case len(matches) > 1:
			best, ambiguous := bestMatch(matches, s.Start, len([]rune(searchText)), flat, contentMap, positions, opts.contextLen())
			outcome := OutcomeTextSearch
			if ambiguous {
				outcome = OutcomeAmbiguous
				opts.logger().Warn("ambiguous span match resolved to first candidate",
					"text", span.Truncate(searchText, 40),
					"candidates", len(matches),
					"section", best.index)
			}
			return Result{Span: adopt(s, best, searchText), Outcome: outcome}
		}
	}

	failed := s
	failed.SectionIndex = -1
	return Result{Span: failed, Outcome: OutcomeFailed}
}

// match is one text-search hit, in codepoint coordinates local to the
// section's content.
type match struct {
	index      int
	start, end int
}

func adopt(s span.Span, m match, text string) span.Span {
	s.SectionIndex = m.index
	s.Start = m.start
	s.End = m.end
	s.Text = text
	return s
}

// sectionPositions locates each section's content within the flat string,
// scanning forward so repeated content resolves in document order. When
// the full content is not found (minor normalization drift), a 100
// codepoint prefix is tried before giving up on that section.
func sectionPositions(flat string, sections []section.Section) []sectionPos {
	var positions []sectionPos
	searchFrom := 0 // byte offset
	for _, sec := range sections {
		if sec.Content == "" {
			continue
		}
		bytePos := indexFrom(flat, sec.Content, searchFrom)
		if bytePos < 0 {
			prefix := sec.Content
			if r := []rune(prefix); len(r) > 100 {
				prefix = string(r[:100])
			}
			bytePos = indexFrom(flat, prefix, searchFrom)
			if bytePos < 0 {
				continue
			}
		}
		start := utf8.RuneCountInString(flat[:bytePos])
		positions = append(positions, sectionPos{
			index: sec.Index,
			start: start,
			end:   start + utf8.RuneCountInString(sec.Content),
		})
		searchFrom = bytePos + len(sec.Content)
	}
	return positions
}

func indexFrom(s, sub string, from int) int {
	if from > len(s) {
		return -1
	}
	ix := strings.Index(s[from:], sub)
	if ix < 0 {
		return -1
	}
	return from + ix
}

// mapToSection finds the section whose flat range contains [start, end).
func mapToSection(start, end int, positions []sectionPos) (index, localStart, localEnd int, ok bool) {
	for _, p := range positions {
		if start >= p.start && end <= p.end {
			return p.index, start - p.start, end - p.start, true
		}
	}
	return 0, 0, 0, false
}

// searchSections finds every occurrence of text in every section,
// overlapping occurrences included.
func searchSections(text string, sections []section.Section) []match {
	var matches []match
	textLen := utf8.RuneCountInString(text)
	for _, sec := range sections {
		if sec.Content == "" {
			continue
		}
		from := 0
		for {
			bytePos := indexFrom(sec.Content, text, from)
			if bytePos < 0 {
				break
			}
			start := utf8.RuneCountInString(sec.Content[:bytePos])
			matches = append(matches, match{index: sec.Index, start: start, end: start + textLen})
			from = bytePos + 1
		}
	}
	return matches
}

// bestMatch ranks candidates by how much of the flat string's surrounding
// context they reproduce, breaking ties by distance from the original
// global offset. ambiguous is true when the winner cannot be separated
// from another candidate, or when no candidate matched any context at
// all.
func bestMatch(
	matches []match,
	globalStart, textLen int,
	flat []rune,
	contentMap map[int]string,
	positions []sectionPos,
	contextLen int,
) (match, bool) {
	oldBefore := runeSlice(flat, globalStart-contextLen, globalStart)
	oldAfter := runeSlice(flat, globalStart+textLen, globalStart+textLen+contextLen)

	sectionStarts := make(map[int]int, len(positions))
	for _, p := range positions {
		sectionStarts[p.index] = p.start
	}

	best := matches[0]
	bestScore, bestDistance := -1, int(^uint(0)>>1)
	ties := 0
	for _, m := range matches {
		score := 0
		if content, ok := contentMap[m.index]; ok {
			cRunes := []rune(content)
			candBefore := runeSlice(cRunes, m.start-contextLen, m.start)
			candAfter := runeSlice(cRunes, m.end, m.end+contextLen)
			score = suffixMatch(oldBefore, candBefore) + prefixMatch(oldAfter, candAfter)
		}

		distance := int(^uint(0) >> 1)
		if secStart, ok := sectionStarts[m.index]; ok {
			distance = abs(secStart + m.start - globalStart)
		}

		switch {
		case score > bestScore || (score == bestScore && distance < bestDistance):
			best, bestScore, bestDistance = m, score, distance
			ties = 1
		case score == bestScore && distance == bestDistance:
			ties++
		}
	}

	return best, bestScore == 0 || ties > 1
}

func runeSlice(r []rune, start, end int) []rune {
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return nil
	}
	return r[start:end]
}

// suffixMatch counts how many characters immediately preceding the span
// agree, walking backwards until the first difference.
func suffixMatch(a, b []rune) int {
	n := 0
	for i := 1; i <= len(a) && i <= len(b); i++ {
		if a[len(a)-i] != b[len(b)-i] {
			break
		}
		n++
	}
	return n
}

// prefixMatch counts how many characters immediately following the span
// agree.
func prefixMatch(a, b []rune) int {
	n := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		n++
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// duplicateAcrossBodies copies each successfully migrated body span into
// every sibling text body that contains the same text. Multipart
// alternatives usually carry the same content twice; annotating one
// representation should redact both.
func duplicateAcrossBodies(results []Result, sections []section.Section, contentMap map[int]string) []span.Span {
	var bodies []section.Section
	for _, sec := range sections {
		if sec.Type != section.Headers {
			bodies = append(bodies, sec)
		}
	}
	if len(bodies) <= 1 {
		return nil
	}

	type key struct {
		index int
		text  string
	}
	existing := make(map[key]bool)
	for _, res := range results {
		if res.Span.SectionIndex > 0 && res.Span.Text != "" {
			existing[key{res.Span.SectionIndex, res.Span.Text}] = true
		}
	}

	var dups []span.Span
	for _, res := range results {
		s := res.Span
		if s.SectionIndex <= 0 || s.Text == "" {
			continue
		}
		if res.Outcome == OutcomeFailed {
			continue
		}
		for _, sec := range bodies {
			if sec.Index == s.SectionIndex {
				continue
			}
			k := key{sec.Index, s.Text}
			if existing[k] {
				continue
			}
			content := contentMap[sec.Index]
			bytePos := strings.Index(content, s.Text)
			if bytePos < 0 {
				continue
			}
			start := utf8.RuneCountInString(content[:bytePos])
			dup := s
			dup.ID = uuid.New()
			dup.SectionIndex = sec.Index
			dup.Start = start
			dup.End = start + utf8.RuneCountInString(s.Text)
			dups = append(dups, dup)
			existing[k] = true
		}
	}
	return dups
}
