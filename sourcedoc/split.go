package sourcedoc

import (
	"bytes"
	"encoding/base64"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/wahtml/wahtml/polytar"
)

// RecoveredEntry is one file recovered by SplitTarContents: its name, the
// reconstructed 512-byte file header, and the decoded payload.
type RecoveredEntry struct {
	Name   string
	Header polytar.Block
	Data   []byte
}

// SplitTarContents is the inverse of the builder: given a document a
// browser has saved (and possibly mangled), it finds every data-carrying
// element, reconstructs the entries they describe, strips those elements
// from the DOM, and returns the recovered entries plus the document
// restored to a clean form suitable for re-encoding.
func SplitTarContents(text []byte) ([]RecoveredEntry, []byte, error) {
	doc, err := html.Parse(bytes.NewReader(text))
	if err != nil {
		return nil, nil, err
	}

	var carriers []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, polytar.DataClass) {
			carriers = append(carriers, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var entries []RecoveredEntry
	for _, n := range carriers {
		entry, ok := recoverEntry(n)
		if ok {
			entries = append(entries, entry)
		}
	}

	for _, n := range carriers {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, nil, err
	}

	return entries, out.Bytes(), nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func recoverEntry(n *html.Node) (RecoveredEntry, bool) {
	var name, headerTail string
	for _, a := range n.Attr {
		switch a.Key {
		case polytar.AttrID:
			name = sanitizeName(a.Val)
		case polytar.AttrB:
			headerTail = sanitizeHeaderTail(a.Val)
		}
	}

	if len(name) > 100 {
		slog.Warn("sourcedoc: dropping recovered entry with oversized name", "len", len(name))
		return RecoveredEntry{}, false
	}
	if len(headerTail) > 412 {
		slog.Warn("sourcedoc: dropping recovered entry with malformed header", "name", name, "len", len(headerTail))
		return RecoveredEntry{}, false
	}

	header := polytar.Empty()
	copy(header[:100], name)
	copy(header[100:512], headerTail)

	payload := unmangleNul(textContent(n))
	payload = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, payload)
	payload = strings.Trim(payload, "\x00")
	payload = strings.TrimSpace(payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		slog.Warn("sourcedoc: dropping recovered entry with invalid base64 payload", "name", name, "error", err)
		return RecoveredEntry{}, false
	}

	return RecoveredEntry{Name: name, Header: header, Data: data}, true
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// sanitizeName restores a NUL-padded name attribute value mangled by a
// browser save, then trims the padding.
func sanitizeName(s string) string {
	return strings.Trim(unmangleNul(s), "\x00")
}

// sanitizeHeaderTail restores a mangled header-tail attribute value
// without trimming: every one of its bytes, including embedded NULs, is
// semantically significant tar header content.
func sanitizeHeaderTail(s string) string {
	return unmangleNul(s)
}

func unmangleNul(s string) string {
	s = strings.ReplaceAll(s, "&#65533;", "\x00")
	s = strings.ReplaceAll(s, "�", "\x00")
	return s
}
