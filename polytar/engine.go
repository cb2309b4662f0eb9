package polytar

import (
	"encoding/base64"
	"strconv"
)

// Engine is the stateful encoder side of the codec. len tracks the running
// byte offset of everything emitted so far so that padding and size fields
// stay consistent across calls; isEscaped tracks whether the last emitted
// escape is still open, which decides whether the next entry's carrier
// element needs only an opener or a closer-plus-opener. It holds no buffer
// of its own — callers write out each returned chunk as it is produced.
type Engine struct {
	len       uint64
	isEscaped bool
}

// NewEngine returns an encoder starting at offset 0.
func NewEngine() *Engine { return &Engine{} }

// Len reports the number of bytes the engine believes it has accounted for
// so far.
func (e *Engine) Len() uint64 { return e.len }

// InitialEscape is the result of StartOfFile: the header to splice in place
// of the consumed HTML head, the extra bytes that follow it before the raw
// tail resumes, and how much of htmlHead was consumed.
type InitialEscape struct {
	Header   Block
	Extra    []byte
	Consumed int
}

// StartOfFile mangles the HTML prefix ending at the `<html ...>` open tag so
// it doubles as a tar extended header. htmlHead must end in '>' and be short
// enough to fit (together with htmlHeadAttrOpen) in the name field.
// entryOffset is the absolute byte offset, within the original document,
// where the first real entry begins; everything between the end of
// htmlHead and entryOffset becomes a commented-out tar pax payload.
func (e *Engine) StartOfFile(htmlHead []byte, entryOffset int) InitialEscape {
	if len(htmlHead) == 0 || htmlHead[len(htmlHead)-1] != '>' {
		panic("polytar: StartOfFile requires htmlHead to end with '>'")
	}
	allExceptClose := len(htmlHead) - 1
	if 1+allExceptClose+len(htmlHeadAttrOpen) > lenName {
		panic("polytar: html head too long for StartOfFile")
	}

	consumed := len(htmlHead)
	tailLen := entryOffset - consumed
	if tailLen < 0 {
		panic("polytar: entryOffset precedes end of htmlHead")
	}

	header := Empty()
	name := header.Name()
	copy(name[1:][:allExceptClose], htmlHead[:allExceptClose])
	copy(name[1:][allExceptClose:][:len(htmlHeadAttrOpen)], htmlHeadAttrOpen)
	*header.Typeflag() = TypeXHeader

	extraValue := len(commentIntroducer) + tailLen
	extra := []byte(padDecimal10(extraValue) + commentIntroducer)

	putOctal(header.Size(), uint64(len(extra)+tailLen))
	AssignPermissionEncodingMeta(&header)
	AssignChecksum(&header)

	e.len += BlockSize + uint64(len(extra)) + uint64(tailLen)

	return InitialEscape{Header: header, Extra: extra, Consumed: consumed}
}

// EscapedBase64 base64-encodes entry.Data (standard alphabet, padded) and
// emits it through the internal two-header emitter, opening a new escape
// run or continuing the current one depending on state.
func (e *Engine) EscapedBase64(entry Entry) EscapedData {
	return e.emitEntry(entry.Name, entry.Attributes, base64Encode(entry.Data), nil)
}

// EscapedExternal emits a reference-only entry: no payload is embedded,
// the file header instead names where the real bytes live (linkname) and
// carries the true size in the realsize sub-field, typeflag 'S'.
func (e *Engine) EscapedExternal(ext External) EscapedData {
	reference := ext.Reference
	hook := func(_, file *Block) {
		linkname := file.Linkname()
		if 1+len(reference) > len(linkname) {
			panic("polytar: reference too long for linkname field")
		}
		copy(linkname[1:][:len(reference)], reference)
		*file.Typeflag() = TypeSparse
		putOctalNoNul(file.Realsize(), ext.RealSize)
	}
	return e.emitEntry(ext.Name, ext.Attributes, nil, hook)
}

// emitEntry is the internal two-header emitter shared by EscapedBase64 and
// EscapedExternal: an extended header naming the carrier element (opening
// it fresh, or closing-then-reopening if an escape is already underway), a
// file header naming the entry and closing that element's opening tag,
// followed by the data.
func (e *Engine) emitEntry(name HTMLAttributeSafeName, attrs EntryAttributes, data []byte, hook func(header, file *Block)) EscapedData {
	padding := e.padToFit()

	startConst := StartName
	if e.isEscaped {
		startConst = ContName
	}

	header := Empty()
	copy(header.Name()[:len(startConst)], startConst)
	*header.Typeflag() = TypeXHeader
	putOctal(header.Size(), 0)
	AssignPermissionEncodingMeta(&header)
	prefix := header.Prefix()
	copy(prefix[len(prefix)-len(ID):], ID)

	file := Empty()
	fname := file.Name()
	if len(name) >= len(fname) {
		panic("polytar: entry name too long for name field")
	}
	copy(fname[:len(name)], name)
	cont := fname[len(name)+1:]
	if len(IDEndCont) > len(cont) {
		panic("polytar: entry name leaves no room for continuation marker")
	}
	copy(cont[len(cont)-len(IDEndCont):], IDEndCont)
	fprefix := file.Prefix()
	copy(fprefix[len(fprefix)-len(DataStart):], DataStart)

	putOctal(file.Size(), uint64(len(data)))
	AssignPermissionEncodingMeta(&file)
	AssignAttributes(&file, attrs)

	if hook != nil {
		hook(&header, &file)
	}

	AssignChecksum(&header)
	AssignChecksum(&file)

	e.isEscaped = true
	e.len += 2*BlockSize + uint64(len(data))

	return EscapedData{Padding: padding, Header: header, File: file, Data: data}
}

// EscapedEnd closes the current run and reopens a transparent one whose
// payload is skip bytes of raw HTML, leaving a seam in the document before
// escaped payload resumes. Requires an escape to currently be open; clears
// it. Implemented for completeness; nothing in this module's builder
// currently emits a mid-document seam.
func (e *Engine) EscapedEnd(skip uint64) EscapedSentinel {
	if !e.isEscaped {
		panic("polytar: EscapedEnd called outside an open escape")
	}

	padding := e.padToFit()

	header := Empty()
	copy(header.Name()[:len(EndStart)], EndStart)
	putOctal(header.Size(), skip)
	prefix := header.Prefix()
	copy(prefix[len(prefix)-len(EndClose):], EndClose)
	AssignPermissionEncodingMeta(&header)
	AssignChecksum(&header)

	e.isEscaped = false
	e.len += BlockSize + skip

	return EscapedSentinel{Padding: padding, Header: header}
}

// EscapedEOF closes the artifact. If an escape is currently open, it also
// emits the trailing EOFTerminator bytes needed to close the carrier
// element; otherwise the two zero headers are a bare tar EOF.
func (e *Engine) EscapedEOF() EscapedData {
	padding := e.padToFit()
	var data []byte
	if e.isEscaped {
		data = []byte(EOFTerminator)
	}
	return EscapedData{Padding: padding, Header: Empty(), File: Empty(), Data: data}
}

func (e *Engine) padToFit() []byte {
	pad := BlockPadding(int64(e.len))
	e.len += uint64(pad)
	return make([]byte, pad)
}

func base64Encode(data []byte) []byte {
	buf := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(buf, data)
	return buf
}

func base64Decode(data []byte) ([]byte, error) {
	buf := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(buf, data)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// padDecimal10 formats v as a zero-padded 10-digit decimal string.
func padDecimal10(v int) string {
	s := strconv.Itoa(v)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
