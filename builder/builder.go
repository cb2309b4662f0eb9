// Package builder glues sourcedoc's anchor locator and polytar's encoder
// together: given an input HTML document and a caller-supplied stream of
// entries, it produces the final polyglot artifact.
package builder

import (
	"bytes"

	"github.com/wahtml/wahtml/polytar"
	"github.com/wahtml/wahtml/sourcedoc"
)

// Item is one value a Yield callback may push: exactly one of Entry or
// External must be set.
type Item struct {
	Entry    *polytar.Entry
	External *polytar.External
}

// EntryItem wraps e as a pushable Item.
func EntryItem(e polytar.Entry) Item { return Item{Entry: &e} }

// ExternalItem wraps x as a pushable Item.
func ExternalItem(x polytar.External) Item { return Item{External: &x} }

// Yield is supplied by the caller to enumerate the entries to embed. It
// calls push once per entry, in the order they should appear in the
// artifact.
type Yield func(push func(Item)) error

// Build assembles the polyglot artifact from source (an input HTML
// document), the entries yield produces, and the bytes of the stage-0
// bootstrap script to embed (or nil to keep the source document's own
// script element unchanged).
func Build(source []byte, yield Yield, stage0Script []byte) ([]byte, error) {
	structure, text, err := sourcedoc.PrepareTarStructure(source)
	if err != nil {
		return nil, err
	}

	insert := structure.Insert
	stage0 := structure.Stage0
	if !(insert.End < stage0.Start) {
		return nil, &polytar.ErrMissingNode{Content: "ordering", SearchedFor: "insertion anchor before stage-0 script"}
	}

	var out bytes.Buffer
	engine := polytar.NewEngine()

	init := engine.StartOfFile(text[:structure.HTMLHeadEnd], insert.Start)
	out.Write(init.Header[:])
	out.Write(init.Extra)
	out.Write(text[init.Consumed:insert.Start])

	var items []Item
	pushErr := yield(func(it Item) { items = append(items, it) })
	if pushErr != nil {
		return nil, pushErr
	}

	type chunk struct {
		padding []byte
		header  polytar.Block
		file    polytar.Block
		data    []byte
	}
	var chunks []chunk
	for _, it := range items {
		var d polytar.EscapedData
		switch {
		case it.Entry != nil:
			d = engine.EscapedBase64(*it.Entry)
		case it.External != nil:
			d = engine.EscapedExternal(*it.External)
		default:
			continue
		}
		chunks = append(chunks, chunk{d.Padding, d.Header, d.File, d.Data})
	}

	for _, c := range chunks {
		out.Write(c.padding)
		out.Write(c.header[:])
		out.Write(c.file[:])
		out.Write(c.data)
	}

	if len(chunks) > 0 {
		eof := engine.EscapedEOF()
		out.Write(eof.Padding)
		out.Write(eof.Header[:])
		out.Write(eof.File[:])
		out.Write(eof.Data)
	}

	out.Write(text[insert.End:stage0.Start])

	if stage0Script != nil {
		out.WriteString(`<script id="` + polytar.AnchorStage0ID + `">`)
		out.Write(stage0Script)
		out.WriteString("</script>")
	} else {
		out.Write(text[stage0.Start:stage0.End])
	}

	out.Write(text[stage0.End:])

	return out.Bytes(), nil
}
