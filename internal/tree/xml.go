package tree

import (
	"encoding/xml"
	"sort"
)

// UnmarshalXML reads the tree generator's XML dump: the element name is the node
// type, XML attributes are node attributes, child elements are children.
// Character data between elements is ignored.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return readElement(d, start, n, DefaultMaxDepth)
}

// decodeXML reads the first element of the document into root.
func decodeXML(d *xml.Decoder, root *Node, maxDepth int) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return readElement(d, start, root, maxDepth)
		}
	}
}

// readElement fills n from start up to its matching end element. Open
// elements live on an explicit stack, so nesting costs heap, not call depth.
func readElement(d *xml.Decoder, start xml.StartElement, n *Node, maxDepth int) error {
	fillElement(n, start)
	open := []*Node{n}
	for len(open) > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(open) > maxDepth {
				return &DepthError{Depth: len(open), Limit: maxDepth}
			}
			child := &Node{}
			fillElement(child, t)
			parent := open[len(open)-1]
			parent.Children = append(parent.Children, child)
			open = append(open, child)
		case xml.EndElement:
			open = open[:len(open)-1]
		}
	}
	return nil
}

func fillElement(n *Node, start xml.StartElement) {
	n.Type = start.Name.Local
	if len(start.Attr) > 0 {
		n.Attributes = make(Attrs, len(start.Attr))
		for _, a := range start.Attr {
			n.Attributes[a.Name.Local] = a.Value
		}
	}
}

func (n *Node) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Type}}
	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: n.Attributes[k]})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if err := e.Encode(c); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
