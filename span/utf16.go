package span

import (
	"errors"
	"fmt"
)

// ErrSurrogateSplit is returned when a UTF-16 offset lands strictly inside
// a surrogate pair. Such an offset cannot name a codepoint boundary; the
// span carrying it is flagged rather than silently moved.
var ErrSurrogateSplit = errors.New("utf-16 offset splits a surrogate pair")

// ErrPastEnd is returned when a UTF-16 offset exceeds the content length.
var ErrPastEnd = errors.New("utf-16 offset past end of content")

// UTF16Len returns the length of s in UTF-16 code units. Codepoints above
// the BMP count as two units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

// utf16Width is how many UTF-16 code units encode r: two for codepoints
// above the BMP (a surrogate pair), one for everything else.
func utf16Width(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// UTF16ToCodepoint converts a UTF-16 code-unit offset into a codepoint
// offset in s. Offsets written by JavaScript selection APIs count
// astral-plane characters twice; this undoes that.
func UTF16ToCodepoint(s string, off int) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", ErrPastEnd, off)
	}
	units := 0
	cp := 0
	for _, r := range s {
		if units == off {
			return cp, nil
		}
		w := utf16Width(r)
		if units+w > off {
			return 0, fmt.Errorf("%w: offset %d", ErrSurrogateSplit, off)
		}
		units += w
		cp++
	}
	if units == off {
		return cp, nil
	}
	return 0, fmt.Errorf("%w: %d > %d", ErrPastEnd, off, units)
}

// CodepointToUTF16 converts a codepoint offset in s to a UTF-16 code-unit
// offset. It is the inverse of UTF16ToCodepoint for valid boundaries.
func CodepointToUTF16(s string, off int) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", ErrPastEnd, off)
	}
	units := 0
	cp := 0
	for _, r := range s {
		if cp == off {
			return units, nil
		}
		units += utf16Width(r)
		cp++
	}
	if cp == off {
		return units, nil
	}
	return 0, fmt.Errorf("%w: %d > %d", ErrPastEnd, off, cp)
}
