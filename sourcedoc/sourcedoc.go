// Package sourcedoc locates the DOM anchors the builder splices tar
// content around, injecting fallback anchors when the input HTML lacks
// them, and implements the inverse: recovering embedded entries from a
// document a browser has saved (and possibly mangled).
package sourcedoc

import (
	"bytes"

	"golang.org/x/net/html"

	"github.com/wahtml/wahtml/polytar"
)

// Structure holds the byte spans PrepareTarStructure locates: where the
// `<html ...>` start tag ends, the insertion anchor's full element span,
// and the stage-0 script's full element span.
type Structure struct {
	HTMLHeadEnd int
	Insert      polytar.Span
	Stage0      polytar.Span
}

const (
	injectedAnchor = `<template id="` + polytar.AnchorContentID + `"></template>`
	injectedStage0 = `<script id="` + polytar.AnchorStage0ID + `"></script>`
)

// PrepareTarStructure tokenizes text and locates the anchors the builder
// needs. If either anchor is absent it splices fallback anchor markup into
// the text (content anchor at the start of <head>, stage-0 anchor at the
// start of <body>) and retries once; a second miss is fatal.
func PrepareTarStructure(text []byte) (*Structure, []byte, error) {
	text = EnsureDoctype(text)

	found, err := locate(text)
	if err == nil {
		return found, text, nil
	}
	if _, ok := err.(*polytar.ErrMissingNode); !ok {
		return nil, nil, err
	}

	injected, err := injectFallbackAnchors(text)
	if err != nil {
		return nil, nil, err
	}

	found, err = locate(injected)
	if err != nil {
		return nil, nil, err
	}
	return found, injected, nil
}

type scanPositions struct {
	htmlHeadEnd  int
	headOpenEnd  int
	bodyOpenEnd  int
	insert       polytar.Span
	haveInsert   bool
	stage0       polytar.Span
	haveStage0   bool
}

// scan tokenizes text once, recording the byte offsets every later step
// needs. Collecting first and mutating afterward avoids invalidating
// offsets mid-traversal (spec.md Design Notes §9).
func scan(text []byte) (scanPositions, error) {
	var pos scanPositions
	z := html.NewTokenizer(bytes.NewReader(text))
	offset := 0

	var pendingDepthTag string
	var pendingStart int
	depth := 0

	for {
		tt := z.Next()
		raw := z.Raw()
		tokenStart := offset
		offset += len(raw)

		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			id := ""
			if hasAttr {
				for {
					k, v, more := z.TagAttr()
					if string(k) == "id" {
						id = string(v)
					}
					if !more {
						break
					}
				}
			}

			switch {
			case tag == "html" && pos.htmlHeadEnd == 0:
				pos.htmlHeadEnd = offset
			case tag == "head" && pos.headOpenEnd == 0:
				pos.headOpenEnd = offset
			case tag == "body" && pos.bodyOpenEnd == 0:
				pos.bodyOpenEnd = offset
			}

			if id == polytar.AnchorContentID && !pos.haveInsert {
				if tt == html.SelfClosingTagToken {
					pos.insert = polytar.Span{Start: tokenStart, End: offset}
					pos.haveInsert = true
				} else {
					pendingDepthTag = tag
					pendingStart = tokenStart
					depth = 1
				}
			}
			if id == polytar.AnchorStage0ID && tag == "script" && !pos.haveStage0 {
				pendingDepthTag = tag
				pendingStart = tokenStart
				depth = 1
				// reuse pendingDepthTag machinery below but mark which target
				// we are closing via a second pass (script never nests).
			}

			if pendingDepthTag == tag && tag != "script" && depth > 0 && tokenStart != pendingStart {
				depth++
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" && pendingDepthTag == "script" && !pos.haveStage0 {
				pos.stage0 = polytar.Span{Start: pendingStart, End: offset}
				pos.haveStage0 = true
				pendingDepthTag = ""
				continue
			}
			if pendingDepthTag == tag && !pos.haveInsert {
				depth--
				if depth == 0 {
					pos.insert = polytar.Span{Start: pendingStart, End: offset}
					pos.haveInsert = true
					pendingDepthTag = ""
				}
			}
		}
	}

	return pos, nil
}

func locate(text []byte) (*Structure, error) {
	pos, err := scan(text)
	if err != nil {
		return nil, err
	}
	if pos.htmlHeadEnd == 0 {
		return nil, &polytar.ErrMissingNode{Content: "html", SearchedFor: "<html> element"}
	}
	if !pos.haveInsert {
		return nil, &polytar.ErrMissingNode{Content: "insert", SearchedFor: polytar.AnchorContentID}
	}
	if !pos.haveStage0 {
		return nil, &polytar.ErrMissingNode{Content: "stage0", SearchedFor: polytar.AnchorStage0ID}
	}
	return &Structure{
		HTMLHeadEnd: pos.htmlHeadEnd,
		Insert:      pos.insert,
		Stage0:      pos.stage0,
	}, nil
}

func injectFallbackAnchors(text []byte) ([]byte, error) {
	pos, err := scan(text)
	if err != nil {
		return nil, err
	}
	if pos.headOpenEnd == 0 || pos.bodyOpenEnd == 0 {
		return nil, &polytar.ErrMissingNode{Content: "head/body", SearchedFor: "<head> or <body> element"}
	}

	type insertion struct {
		at   int
		text string
	}
	var ins []insertion
	if !pos.haveInsert {
		ins = append(ins, insertion{pos.headOpenEnd, injectedAnchor})
	}
	if !pos.haveStage0 {
		ins = append(ins, insertion{pos.bodyOpenEnd, injectedStage0})
	}

	var buf bytes.Buffer
	cursor := 0
	for _, in := range ins {
		buf.Write(text[cursor:in.at])
		buf.WriteString(in.text)
		cursor = in.at
	}
	buf.Write(text[cursor:])
	return buf.Bytes(), nil
}

// EnsureDoctype prepends "<!DOCTYPE html>" when the first 4096 bytes of
// text contain no case-insensitive "<!doctype", defending against HTML parsers
// that require one.
func EnsureDoctype(text []byte) []byte {
	if bytes.Contains(bytes.ToLower(text[:min(len(text), 4096)]), []byte("<!doctype")) {
		return text
	}
	out := make([]byte, 0, len(text)+len("<!DOCTYPE html>"))
	out = append(out, "<!DOCTYPE html>"...)
	out = append(out, text...)
	return out
}

