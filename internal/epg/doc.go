package epg

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Doc is one parsed feed element as a generic tree. Attributes appear under
// "@name" keys, character data under "#text", and child elements under their
// tag name. A child that repeats becomes a []any of subtrees. An element with
// no attributes and no element children collapses to its plain text, which is
// how upstream feeds expose values like <category>News</category>.
//
// Feeds are irregular by nature, so the tree carries everything the upstream
// sent; consumers pull the fields they understand through Get.
type Doc map[string]any

// Parse decodes an XMLTV feed document and returns the tree under the root
// element. The root tag itself is not part of any path.
func Parse(r io.Reader) (Doc, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("epg parse: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			node, err := decodeElement(dec, start)
			if err != nil {
				return nil, fmt.Errorf("epg parse: %w", err)
			}
			doc, ok := node.(Doc)
			if !ok {
				// Root held bare text only; present it as a tree anyway.
				return Doc{"#text": node}, nil
			}
			return doc, nil
		}
	}
}

// decodeElement consumes dec until start's matching end tag and returns either
// a Doc or, for attribute-less leaf elements, the plain text value.
func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := Doc{}
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	hasChildren := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			appendChild(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			body := strings.TrimSpace(text.String())
			if len(start.Attr) == 0 && !hasChildren {
				return body, nil
			}
			if body != "" {
				node["#text"] = body
			}
			return node, nil
		}
	}
}

// appendChild inserts a child under name, promoting repeated siblings to a
// slice so feeds with many <programme> entries keep them all.
func appendChild(node Doc, name string, child any) {
	existing, ok := node[name]
	if !ok {
		node[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, child)
		return
	}
	node[name] = []any{existing, child}
}

// Get walks a dotted path ("title.#text", "icon.@src") and returns the string
// at its end, or def when any step is missing or the end is not a string.
func (d Doc) Get(path, def string) string {
	var cur any = d
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(Doc)
		if !ok {
			if mm, ok2 := cur.(map[string]any); ok2 {
				m = Doc(mm)
			} else {
				return def
			}
		}
		cur, ok = m[part]
		if !ok {
			return def
		}
	}
	if s, ok := cur.(string); ok {
		return s
	}
	return def
}

// Programmes returns the programme entries of a feed document. A feed with a
// single entry yields the entry directly rather than a list, so both shapes
// are handled. An empty slice means the feed carries no schedule at all.
func (d Doc) Programmes() []Doc {
	raw, ok := d["programme"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		out := make([]Doc, 0, len(v))
		for _, item := range v {
			if m, ok := asDoc(item); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		if m, ok := asDoc(v); ok {
			return []Doc{m}
		}
		return nil
	}
}

func asDoc(v any) (Doc, bool) {
	switch m := v.(type) {
	case Doc:
		return m, true
	case map[string]any:
		return Doc(m), true
	}
	return nil, false
}
