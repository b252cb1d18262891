// Package emlspan turns raw .eml content into a stable, ordered set of
// annotatable text sections and back again.
//
// The problem this library solves is keeping human-visible text offsets
// byte-exact across the three transformations an annotated email goes
// through: raw bytes to decoded codepoints (MIME transfer encodings and
// charsets), UTF-16 code units to codepoints (offsets recorded by browser
// clients), and decoded text back to re-encoded bytes (producing a
// redacted email that still parses).
//
// The packages split along those lines:
//
// The message package parses raw email into an in-memory part tree,
// preserving boundaries, header order, folded header lines, and the
// original line-break style so that a message can be written back out
// without structural drift. message/header, message/transfer, and
// message/charset handle the header field list, Content-transfer-encoding
// transcoding, and charset decoding respectively.
//
// The section package flattens the part tree into Sections: section 0 is
// always the header block, and each decoded text/* leaf becomes one body
// section with carriage returns stripped. Offsets are always codepoint
// offsets into section content.
//
// The span package defines the annotation span contract: a span's stored
// text must equal the codepoint slice of its section content, always.
// span/repair holds the batch tools that correct whitespace drift and
// UTF-16 offset miscounts without ever breaking that contract, and
// span/migrate moves spans recorded against the legacy flat-offset model
// into per-section offsets.
//
// The reassemble package splices tag replacements back into the original
// message, re-encoding each body with its original transfer encoding and
// leaving the MIME structure intact.
package emlspan
