// Package charset decodes and encodes text in the character sets declared
// by MIME parts.
//
// Decoding never fails: an unknown charset or undecodable input degrades
// to a UTF-8 interpretation with replacement characters, because an
// imperfect section is more useful than a failed document.
package charset

import (
	"strings"
	"unicode/utf8"

	_ "golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

const defaultCharset = "utf-8"

// Decode converts the given bytes from the named charset to a string.
// Unsupported charsets and decode errors fall back to reading the bytes
// as UTF-8, substituting the replacement character for anything invalid.
func Decode(cs string, b []byte) string {
	if cs == "" {
		cs = defaultCharset
	}

	enc, err := ianaindex.MIME.Encoding(cs)
	if err == nil && enc != nil {
		s, err := enc.NewDecoder().Bytes(b)
		if err == nil {
			return string(s)
		}
	}

	return decodeUTF8Replace(b)
}

// Encode converts the string into bytes of the named charset. The fallback
// on unsupported charsets or unencodable runes is the raw UTF-8 bytes.
func Encode(cs string, s string) []byte {
	if cs == "" || strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "utf8") {
		return []byte(s)
	}

	enc, err := ianaindex.MIME.Encoding(cs)
	if err == nil && enc != nil {
		b, err := enc.NewEncoder().Bytes([]byte(s))
		if err == nil {
			return b
		}
	}

	return []byte(s)
}

// EncodedLen reports how many bytes the rune occupies in the named
// charset. Used by the offset mapper to walk decoded text against an
// encoded byte stream.
func EncodedLen(cs string, r rune) int {
	if cs == "" || strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "utf8") {
		return utf8.RuneLen(r)
	}
	return len(Encode(cs, string(r)))
}

// decodeUTF8Replace reads b as UTF-8, replacing each invalid byte with the
// Unicode replacement character.
func decodeUTF8Replace(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
