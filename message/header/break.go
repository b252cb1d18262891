package header

// Break is the line-break style an email uses between header fields. It is
// detected at parse time and reused verbatim when writing the header back
// out, so a CRLF message stays a CRLF message.
type Break string

const (
	CRLF Break = "\x0d\x0a" // \r\n - network linebreak
	LF   Break = "\x0a"     // \n - unix linebreak
	CR   Break = "\x0d"     // \r - old Mac linebreak
	LFCR Break = "\x0a\x0d" // \n\r - for weirdos
)

// String returns the break as a string.
func (b Break) String() string {
	return string(b)
}

// Bytes returns the break as a slice of bytes.
func (b Break) Bytes() []byte {
	return []byte(b)
}
