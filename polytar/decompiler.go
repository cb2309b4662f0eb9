package polytar

import "bytes"

// Decompiler is the stateful decoder side of the codec, mirroring Engine's
// running offset so that padding and size bookkeeping stay in lockstep with
// how the encoder produced them (spec.md section 4.4).
type Decompiler struct {
	len uint64
}

// NewDecompiler returns a decoder starting at offset 0.
func NewDecompiler() *Decompiler { return &Decompiler{} }

// Span is a half-open byte range [Start, End) into the artifact.
type Span struct {
	Start int
	End   int
}

// ParsedInitial is the result of Decompiler.StartOfFile: the byte range of
// the original `<html ...` head with its trailing attribute opener removed,
// and the range from the `>` that closes that start tag through the end of
// the raw HTML carried as the header's payload. Header followed by
// Continues reproduces the original document prefix.
type ParsedInitial struct {
	Header    Span
	Continues Span
}

// StartOfFile reads the first 512-byte record of data, which must be a
// typeflag='x' header produced by Engine.StartOfFile, and recovers the
// spans needed to reconstruct the original HTML head and locate where
// plain HTML resumes.
func (d *Decompiler) StartOfFile(data []byte) (ParsedInitial, error) {
	if len(data) < BlockSize {
		return ParsedInitial{}, ErrNotEnoughData
	}
	var this Block
	copy(this[:], data[:BlockSize])
	if *this.Typeflag() != TypeXHeader {
		return ParsedInitial{}, ErrNotAStart
	}

	size, err := ParseSize(&this)
	if err != nil {
		return ParsedInitial{}, err
	}
	d.len += BlockSize
	d.len += size

	nameField := this.Name()[1:]
	nul := bytes.IndexByte(nameField, 0)
	if nul < 0 {
		return ParsedInitial{}, ErrNotEnoughData
	}
	endOfOriginalHeader := nul - len(htmlHeadAttrOpen)
	if endOfOriginalHeader < 0 {
		return ParsedInitial{}, ErrNotEnoughData
	}

	if len(data) <= BlockSize {
		return ParsedInitial{}, ErrNotEnoughData
	}
	rest := data[BlockSize:]
	idx := bytes.IndexByte(rest, '>')
	if idx < 0 {
		return ParsedInitial{}, ErrNotEnoughData
	}

	return ParsedInitial{
		Header:    Span{1, 1 + endOfOriginalHeader},
		Continues: Span{BlockSize + idx, int(d.len)},
	}, nil
}

// ParsedEscapeKind distinguishes the three shapes NextEscape/ContinueEscape
// can return.
type ParsedEscapeKind int

const (
	ParsedEntry ParsedEscapeKind = iota
	ParsedEndOfEscapes
	ParsedEOF
)

// ParsedEscape is the result of walking one double-header step. Range holds
// the payload span for ParsedEntry and ParsedEndOfEscapes; End holds the
// byte offset immediately following the EOF marker for ParsedEOF.
type ParsedEscape struct {
	Kind  ParsedEscapeKind
	File  Block
	Range Span
	End   int
}

// NextEscape advances past padding and reads the next double-header,
// starting a new run of escaped entries or closing it out.
func (d *Decompiler) NextEscape(data []byte) (ParsedEscape, error) {
	return d.nextDoubleHeader(data)
}

// ContinueEscape is NextEscape called while still inside an open run: on
// ParsedEOF it also expects and consumes the trailing EOFTerminator bytes
// that close the carrier element.
func (d *Decompiler) ContinueEscape(data []byte) (ParsedEscape, error) {
	esc, err := d.nextDoubleHeader(data)
	if err != nil {
		return esc, err
	}
	if esc.Kind == ParsedEOF {
		term := []byte(EOFTerminator)
		if esc.End+len(term) > len(data) || !bytes.Equal(data[esc.End:esc.End+len(term)], term) {
			return ParsedEscape{}, ErrNotAnExpectedEscape
		}
		esc.End += len(term)
	}
	return esc, nil
}

func (d *Decompiler) nextDoubleHeader(data []byte) (ParsedEscape, error) {
	d.len = uint64(NextBlockMultiple(int64(d.len)))

	if int(d.len) >= len(data) {
		return ParsedEscape{}, ErrNotEnoughData
	}
	rest := data[d.len:]
	if len(rest) < BlockSize {
		return ParsedEscape{}, ErrNotEnoughData
	}

	var extension Block
	copy(extension[:], rest[:BlockSize])

	if bytes.HasSuffix(extension.Prefix(), []byte(EndClose)) {
		size, err := ParseSize(&extension)
		if err != nil {
			return ParsedEscape{}, err
		}
		d.len += BlockSize
		start := d.len
		d.len += size
		end := d.len
		return ParsedEscape{Kind: ParsedEndOfEscapes, Range: Span{int(start), int(end)}}, nil
	}

	if len(rest) < 2*BlockSize {
		return ParsedEscape{}, ErrNotEnoughData
	}
	var file Block
	copy(file[:], rest[BlockSize:2*BlockSize])

	if extension.IsZero() && file.IsZero() {
		d.len += 2 * BlockSize
		return ParsedEscape{Kind: ParsedEOF, End: int(d.len)}, nil
	}

	if *extension.Typeflag() != TypeXHeader {
		return ParsedEscape{}, ErrNotAnExpectedEscape
	}
	extSize, err := ParseSize(&extension)
	if err != nil {
		return ParsedEscape{}, err
	}
	if extSize != 0 {
		return ParsedEscape{}, ErrNotAnExpectedEscape
	}

	size, err := ParseSize(&file)
	if err != nil {
		return ParsedEscape{}, err
	}

	d.len += 2 * BlockSize
	start := d.len
	d.len += size
	end := d.len

	return ParsedEscape{Kind: ParsedEntry, File: file, Range: Span{int(start), int(end)}}, nil
}

// FileData is file_data(header, slice): for a normal entry (typeflag \0)
// it base64-decodes the payload and returns ok=true; for 'x' and 'S'
// headers — extended headers and External references, which carry no
// inline payload to decode — it returns ok=false.
func (p ParsedEscape) FileData(data []byte) (decoded []byte, ok bool) {
	if *p.File.Typeflag() != TypeRegular {
		return nil, false
	}
	raw := data[p.Range.Start:p.Range.End]
	out, err := base64Decode(raw)
	if err != nil {
		return nil, false
	}
	return out, true
}
