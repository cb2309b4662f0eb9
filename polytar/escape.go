package polytar

// Escape Primitives: the constant byte strings that wrap tar header
// fields in HTML markup so a browser ignores them while a tar reader
// still sees well-formed USTAR records (spec.md section 4.2). Each forms
// a valid HTML attribute-list or tag sequence read left to right. Those
// written at the start of a field (StartName, ContName, EndStart, and
// EndClose) begin with a NUL so tar treats the field as holding an
// empty/short string.
const (
	// StartName opens a new escape block in the extended header's name
	// field.
	StartName = "\x00<noscript type=none class=\"wah_polyglot_data\" data-a=\""

	// ContName closes the previous <noscript> and opens the next, used
	// for continuation headers mid-escape.
	ContName = "\x00</noscript><noscript type=none class=\"wah_polyglot_data\" data-a=\""

	// ID closes the data-a attribute and opens data-wahtml_id, placed at
	// the tail of the prefix field.
	ID = "\" data-wahtml_id=\""

	// IDEndCont closes data-wahtml_id and opens data-b, placed at the
	// tail of the file header's name field.
	IDEndCont = "\" data-b=\""

	// DataStart closes data-b and closes the <noscript> opening tag, so
	// the base64 payload becomes the element's text content.
	DataStart = "\">"

	// EOFTerminator closes the final <noscript> when the document ends
	// inside an open escape.
	EOFTerminator = "</noscript>"

	// EndStart opens the seam sentinel written by escaped_end: it closes
	// whatever <noscript> was open and immediately opens an empty one,
	// carrying no class/data-a attribute since the bytes it brackets are
	// plain HTML, not escaped payload.
	EndStart = "\x00</noscript><noscript type=none>"

	// EndClose is the prefix-field tail of the same sentinel, closing the
	// empty <noscript> it opened.
	EndClose = "\x00</noscript>"
)

// htmlHeadAttrOpen is appended after the truncated `<html ...` head in
// StartOfFile so the tag is left open with an attribute value spanning
// the commented-out tar payload.
const htmlHeadAttrOpen = " data-a=\""

// commentIntroducer closes the data-a attribute and the tag itself,
// while doubling as the start of a tar pax comment that swallows the
// commented region from a conformant tar reader's perspective.
const commentIntroducer = " comment=\">"

// AnchorContentID and AnchorStage0ID are the DOM anchor ids the
// structure finder locates and, if absent, injects (spec.md section 4.5
// and the GLOSSARY).
const (
	AnchorContentID = "WAH_POLYGLOT_HTML_PLUS_TAR_CONTENT"
	AnchorStage0ID  = "WAH_POLYGLOT_HTML_PLUS_TAR_STAGE0"
)

// DataClass is the class attribute SplitTarContents searches for on
// data-carrying elements, and AttrID/AttrB name the attributes it reads
// off them: the entry's file name and its file header's bytes from offset
// 100 up to the DataStart marker, respectively.
const (
	DataClass = "wah_polyglot_data"
	AttrID    = "data-wahtml_id"
	AttrB     = "data-b"
)
