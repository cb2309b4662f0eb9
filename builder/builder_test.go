package builder

import (
	"bytes"
	"testing"

	"github.com/wahtml/wahtml/polytar"
	"github.com/wahtml/wahtml/sourcedoc"
)

func fixtureDoc() []byte {
	return []byte(`<!DOCTYPE html><html lang="en"><head><title>x</title>` +
		`<template id="` + polytar.AnchorContentID + `"></template>` +
		`</head><body>` +
		`<script id="` + polytar.AnchorStage0ID + `">boot()</script>` +
		`<p>hello</p></body></html>`)
}

func TestBuildZeroEntriesEmitsNoEOF(t *testing.T) {
	out, err := Build(fixtureDoc(), func(push func(Item)) error { return nil }, nil)
	if err != nil {
		t.Fatal(err)
	}

	structure, _, err := sourcedoc.PrepareTarStructure(fixtureDoc())
	if err != nil {
		t.Fatal(err)
	}

	engine := polytar.NewEngine()
	init := engine.StartOfFile(fixtureDoc()[:structure.HTMLHeadEnd], structure.Insert.Start)

	var want bytes.Buffer
	want.Write(init.Header[:])
	want.Write(init.Extra)
	want.Write(fixtureDoc()[init.Consumed:structure.Insert.Start])
	want.Write(fixtureDoc()[structure.Insert.End:structure.Stage0.Start])
	want.Write(fixtureDoc()[structure.Stage0.Start:structure.Stage0.End])
	want.Write(fixtureDoc()[structure.Stage0.End:])

	if !bytes.Equal(out, want.Bytes()) {
		t.Errorf("zero-entry build diverged from the expected no-EOF splice\ngot:  %q\nwant: %q", out, want.Bytes())
	}
}

func TestBuildRecoverableByDecompiler(t *testing.T) {
	nameA, _ := polytar.NewHTMLAttributeSafeName("a.txt")
	nameB, _ := polytar.NewHTMLAttributeSafeName("b.txt")
	payloadA := []byte("first file contents")
	payloadB := []byte("second file, a little different")

	out, err := Build(fixtureDoc(), func(push func(Item)) error {
		push(EntryItem(polytar.Entry{Name: nameA, Data: payloadA}))
		push(EntryItem(polytar.Entry{Name: nameB, Data: payloadB}))
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	d := polytar.NewDecompiler()
	if _, err := d.StartOfFile(out); err != nil {
		t.Fatalf("decompiler could not parse start-of-file: %v", err)
	}

	var got [][]byte
	esc, err := d.NextEscape(out)
	for {
		if err != nil {
			t.Fatal(err)
		}
		if esc.Kind != polytar.ParsedEntry {
			break
		}
		decoded, ok := esc.FileData(out)
		if !ok {
			t.Fatal("FileData returned ok=false for a normal entry")
		}
		got = append(got, decoded)
		esc, err = d.ContinueEscape(out)
	}
	if esc.Kind != polytar.ParsedEOF {
		t.Fatalf("final kind = %v, want ParsedEOF", esc.Kind)
	}
	if len(got) != 2 {
		t.Fatalf("recovered %d entries, want 2", len(got))
	}
}

// TestBuildThenSplitTarContentsRoundTrip exercises the full path a saved
// copy actually takes: Build's raw output, containing literal NUL bytes
// inside HTML attribute values and text content, fed through the same
// golang.org/x/net/html parser a browser's save-as would effectively
// reproduce (the WHATWG tokenizer replaces NUL with U+FFFD in both
// attribute-value and data states). This is the scenario the hand-built,
// pre-clean carrierHTML fixtures in split_test.go never exercise.
func TestBuildThenSplitTarContentsRoundTrip(t *testing.T) {
	nameA, _ := polytar.NewHTMLAttributeSafeName("a.txt")
	nameB, _ := polytar.NewHTMLAttributeSafeName("b.txt")
	payloadA := []byte("first file contents, a little longer than a block")
	payloadB := []byte("second")

	out, err := Build(fixtureDoc(), func(push func(Item)) error {
		push(EntryItem(polytar.Entry{Name: nameA, Data: payloadA}))
		push(EntryItem(polytar.Entry{Name: nameB, Data: payloadB}))
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	entries, _, err := sourcedoc.SplitTarContents(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("recovered %d entries via SplitTarContents, want 2", len(entries))
	}

	byName := map[string][]byte{}
	for _, e := range entries {
		byName[e.Name] = e.Data
	}
	if string(byName["a.txt"]) != string(payloadA) {
		t.Errorf("a.txt recovered as %q, want %q", byName["a.txt"], payloadA)
	}
	if string(byName["b.txt"]) != string(payloadB) {
		t.Errorf("b.txt recovered as %q, want %q", byName["b.txt"], payloadB)
	}
}

func TestBuildWithExternalEntry(t *testing.T) {
	name, _ := polytar.NewHTMLAttributeSafeName("big.bin")
	out, err := Build(fixtureDoc(), func(push func(Item)) error {
		push(ExternalItem(polytar.External{
			Entry:     polytar.Entry{Name: name},
			RealSize:  999999,
			Reference: "0123456789abcdef",
		}))
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("0123456789abcdef")) {
		t.Error("built artifact does not carry the external reference")
	}
}

func TestBuildRejectsOutOfOrderAnchors(t *testing.T) {
	// Stage-0 anchor placed before the content anchor: an invalid
	// ordering the builder must reject rather than splice incorrectly.
	doc := []byte(`<!DOCTYPE html><html><head>` +
		`<script id="` + polytar.AnchorStage0ID + `"></script>` +
		`<template id="` + polytar.AnchorContentID + `"></template>` +
		`</head><body></body></html>`)
	if _, err := Build(doc, func(push func(Item)) error { return nil }, nil); err == nil {
		t.Error("expected an error when the stage-0 anchor precedes the content anchor")
	}
}

func TestBuildReplacesStage0Script(t *testing.T) {
	out, err := Build(fixtureDoc(), func(push func(Item)) error { return nil }, []byte("newBoot()"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("newBoot()")) {
		t.Error("replacement stage-0 script not found in output")
	}
	if bytes.Contains(out, []byte("boot()")) {
		t.Error("original stage-0 script should have been replaced, not kept alongside")
	}
}
