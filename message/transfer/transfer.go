// Package transfer encodes and decodes MIME Content-transfer-encodings.
//
// Decoding is deliberately lenient: email in the wild contains truncated
// base64 and malformed quoted-printable, and a partial decode is always
// more useful for annotation than a refused one. Decode therefore returns
// whatever bytes it could recover alongside the error.
package transfer

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"
)

// The supported Content-transfer-encoding values.
const (
	None            = ""                 // bytes are left as-is
	Bit7            = "7bit"             // bytes are left as-is
	Bit8            = "8bit"             // bytes are left as-is
	Binary          = "binary"           // bytes are left as-is
	QuotedPrintable = "quoted-printable" // RFC 2045 quoted-printable
	Base64          = "base64"           // RFC 2045 base64
)

const base64LineLength = 76

// Transcoding is an encoder/decoder pair for one transfer encoding.
type Transcoding struct {
	// Encode transforms binary payload bytes to their wire form.
	Encode func(b []byte) []byte

	// Decode transforms wire bytes back to the binary payload. On
	// malformed input it returns the bytes recovered so far together
	// with the error.
	Decode func(b []byte) ([]byte, error)
}

// asIs passes bytes through unchanged in both directions.
var asIs = Transcoding{
	Encode: func(b []byte) []byte { return b },
	Decode: func(b []byte) ([]byte, error) { return b, nil },
}

// Transcodings maps each supported Content-transfer-encoding to its
// handling.
var Transcodings = map[string]Transcoding{
	None:            asIs,
	Bit7:            asIs,
	Bit8:            asIs,
	Binary:          asIs,
	QuotedPrintable: {Encode: encodeQP, Decode: decodeQP},
	Base64:          {Encode: encodeBase64, Decode: decodeBase64},
}

// Decode decodes body according to the named transfer encoding. Unknown
// encodings pass through unchanged.
func Decode(cte string, body []byte) ([]byte, error) {
	tc, ok := Transcodings[strings.ToLower(strings.TrimSpace(cte))]
	if !ok {
		return body, nil
	}
	return tc.Decode(body)
}

// Encode encodes body according to the named transfer encoding. Unknown
// encodings pass through unchanged.
func Encode(cte string, body []byte) []byte {
	tc, ok := Transcodings[strings.ToLower(strings.TrimSpace(cte))]
	if !ok {
		return body
	}
	return tc.Encode(body)
}

// encodeBase64 emits standard base64 broken into 76-character lines, each
// terminated by a newline (including the last).
func encodeBase64(b []byte) []byte {
	enc := base64.StdEncoding.EncodeToString(b)
	var buf bytes.Buffer
	buf.Grow(len(enc) + len(enc)/base64LineLength + 1)
	for len(enc) > base64LineLength {
		buf.WriteString(enc[:base64LineLength])
		buf.WriteByte('\n')
		enc = enc[base64LineLength:]
	}
	if len(enc) > 0 {
		buf.WriteString(enc)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// decodeBase64 strips whitespace and decodes. When the input is corrupt,
// the longest cleanly decodable prefix is returned with the error.
func decodeBase64(b []byte) ([]byte, error) {
	clean := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			clean = append(clean, c)
		}
	}

	out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
	n, err := base64.StdEncoding.Decode(out, clean)
	if err == nil {
		return out[:n], nil
	}

	// retry the prefix up to the corrupt quantum
	if cie, ok := err.(base64.CorruptInputError); ok {
		end := int(cie) - int(cie)%4
		if end > 0 && end <= len(clean) {
			n, _ = base64.StdEncoding.Decode(out, clean[:end])
			return out[:n], err
		}
	}
	return nil, err
}

// encodeQP encodes to quoted-printable with CRLF-standardized line breaks
// and soft breaks, as RFC 2045 specifies for the wire.
func encodeQP(b []byte) []byte {
	var buf bytes.Buffer
	w := quotedprintable.NewWriter(&buf)
	_, _ = w.Write(b)
	_ = w.Close()
	return buf.Bytes()
}

// decodeQP decodes quoted-printable, returning any bytes recovered before
// a malformed escape together with the error.
func decodeQP(b []byte) ([]byte, error) {
	r := quotedprintable.NewReader(bytes.NewReader(b))
	out, err := io.ReadAll(r)
	return out, err
}
