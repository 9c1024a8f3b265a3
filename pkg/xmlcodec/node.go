package xmlcodec

import "strings"

const (
	// AttrPrefix marks a lookup key as an attribute name ("@name").
	AttrPrefix = "@"

	// TextKey addresses the character data of a node.
	TextKey = "#text"
)

// Attr is a single attribute of a Node.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a generic XML document.
// Attributes keep their document order, and so do children.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// NewNode creates an element with the given name and no content.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// NewTextNode creates an element holding only character data.
func NewTextNode(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, replacing an existing one with the same name.
func (n *Node) SetAttr(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// AddChild appends child and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// AddText appends a text-only child. The child is always emitted, even if
// text is empty.
func (n *Node) AddText(name, text string) *Node {
	return n.AddChild(NewTextNode(name, text))
}

// AddOptional appends a text-only child only when text is non-empty.
// It returns nil when nothing was added.
func (n *Node) AddOptional(name, text string) *Node {
	if text == "" {
		return nil
	}
	return n.AddText(name, text)
}

// ChildrenNamed returns every direct child with the given name in document order.
// A tag that appears once and a tag that repeats both come back as a slice.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ChildText returns the text of the first child with the given name.
func (n *Node) ChildText(name string) (string, bool) {
	c, ok := n.Child(name)
	if !ok {
		return "", false
	}
	return c.Text, true
}

// HasChildren reports whether the node has any child elements.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// Lookup resolves a key against the node: "@x" reads attribute x, "#text"
// reads the node's own text and any other key reads the text of the first
// child element with that name.
func (n *Node) Lookup(key string) (string, bool) {
	switch {
	case key == TextKey:
		if n == nil {
			return "", false
		}
		return n.Text, true
	case strings.HasPrefix(key, AttrPrefix):
		return n.Attr(strings.TrimPrefix(key, AttrPrefix))
	default:
		return n.ChildText(key)
	}
}
