package polytar

import "time"

// HTMLAttributeSafeName is a string validated to be ASCII and free of
// double quotes, so it can be written verbatim into an HTML attribute
// value without escaping. Every name that ends up inside a tar name field
// or an HTML attribute must be one of these (spec.md section 3).
type HTMLAttributeSafeName string

// NewHTMLAttributeSafeName validates s and returns it wrapped, or an
// error identifying which invariant it broke.
func NewHTMLAttributeSafeName(s string) (HTMLAttributeSafeName, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return "", &ErrNameNotASCII{Name: s}
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			return "", &ErrNameHasHTMLEscapes{Name: s}
		}
	}
	return HTMLAttributeSafeName(s), nil
}

// EntryAttributes carries the optional per-entry metadata a caller may
// override; anything left nil keeps HeaderCodec's deterministic default.
type EntryAttributes struct {
	Mtime    *time.Time
	Uname    *string
	Gname    *string
	Devmajor uint16
	Devminor uint16
}

// Entry is a single file to embed: a validated name, its raw payload, and
// optional attribute overrides.
type Entry struct {
	Name       HTMLAttributeSafeName
	Data       []byte
	Attributes EntryAttributes
}

// External is an Entry variant whose payload is not embedded but named by
// reference, for files the caller does not want duplicated into the
// artifact body.
type External struct {
	Entry
	RealSize  uint64
	Reference string
}

// EscapedData is the encoder's per-entry output: zero-or-more padding
// bytes to the next 512-byte boundary, the extended "x" header, the file
// header, and the base64-encoded payload.
type EscapedData struct {
	Padding []byte
	Header  Block
	File    Block
	Data    []byte
}

// EscapedSentinel is the shape of EscapedEnd's output: padding and a
// single header. EscapedEnd leaves Data empty; the skip bytes of raw HTML
// that follow the header come from the document itself. EscapedEOF
// returns an EscapedData instead.
type EscapedSentinel struct {
	Padding []byte
	Header  Block
	Data    []byte
}
