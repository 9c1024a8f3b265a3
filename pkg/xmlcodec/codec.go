package xmlcodec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrMalformedDocument is returned when text cannot be parsed as a
	// single well-formed XML document.
	ErrMalformedDocument = errors.New("xmlcodec: malformed document")

	// ErrInvalidNode is returned when a Node cannot be encoded.
	ErrInvalidNode = errors.New("xmlcodec: invalid node")
)

// Marshal encodes n and its descendants as XML text.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the XML encoding of n to w in a single Write call.
func Encode(w io.Writer, n *Node) error {
	b, err := Marshal(n)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encode(buf *bytes.Buffer, n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidNode)
	}
	if n.Name == "" {
		return fmt.Errorf("%w: empty element name", ErrInvalidNode)
	}

	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		if a.Name == "" {
			return fmt.Errorf("%w: empty attribute name on <%s>", ErrInvalidNode, n.Name)
		}
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		if err := xml.EscapeText(buf, []byte(a.Value)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}

	if n.Text == "" && len(n.Children) == 0 {
		buf.WriteString("/>")
		return nil
	}
	buf.WriteByte('>')

	if n.Text != "" {
		if err := xml.EscapeText(buf, []byte(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encode(buf, c); err != nil {
			return err
		}
	}

	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
	return nil
}

// Unmarshal parses data as one XML document and returns its root element.
// Nothing but whitespace, comments and processing instructions may surround
// the root. On failure no partial tree is returned.
func Unmarshal(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root *Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if root == nil {
				return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
			}
			return root, nil
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, fmt.Errorf("%w: multiple root elements", ErrMalformedDocument)
			}
			root, err = DecodeElement(dec, t)
			if err != nil {
				return nil, err
			}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("%w: text outside root element", ErrMalformedDocument)
			}
		}
	}
}

// DecodeElement reads the content of start from dec up to and including its
// matching end element.
func DecodeElement(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{Name: start.Name.Local}
	for _, a := range start.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := DecodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(text.String())
			return n, nil
		}
	}
}

func malformed(err error) error {
	if errors.Is(err, ErrMalformedDocument) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
}
