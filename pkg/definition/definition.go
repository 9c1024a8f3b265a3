package definition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

var (
	// ErrDecode is returned when a well-formed document does not have the
	// shape the host protocol requires.
	ErrDecode = errors.New("definition: decode error")

	// ErrMissingField is returned when a required element or attribute is
	// absent. It always matches ErrDecode as well.
	ErrMissingField = fmt.Errorf("%w: missing field", ErrDecode)
)

// Wire element names.
const (
	TagInput         = "input"
	TagItems         = "items"
	TagItem          = "item"
	TagConfiguration = "configuration"
	TagStanza        = "stanza"
	TagParam         = "param"
	TagParamList     = "param_list"
	TagValue         = "value"

	tagServerHost    = "server_host"
	tagServerURI     = "server_uri"
	tagCheckpointDir = "checkpoint_dir"
	tagSessionKey    = "session_key"

	attrName = "name"
)

// Metadata is the per-run information the host sends with every
// configuration document.
type Metadata struct {
	ServerHost    string
	ServerURI     string
	CheckpointDir string
	SessionKey    string
}

// InputBundle is the decoded <input> document: run metadata plus one
// stanza per configured input instance.
type InputBundle struct {
	Metadata
	Inputs map[string]Stanza
}

// Names returns the instance names in sorted order.
func (b *InputBundle) Names() []string {
	names := make([]string, 0, len(b.Inputs))
	for k := range b.Inputs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidationRequest is the decoded <items> document: run metadata plus the
// single proposed stanza.
type ValidationRequest struct {
	Metadata
	Name       string
	Parameters Stanza
}

// DecodeMetadata reads the four metadata elements from an <input> or
// <items> root. Every element must be present; empty text is accepted.
func DecodeMetadata(root *xmlcodec.Node) (Metadata, error) {
	var m Metadata
	fields := []struct {
		tag string
		dst *string
	}{
		{tagServerHost, &m.ServerHost},
		{tagServerURI, &m.ServerURI},
		{tagCheckpointDir, &m.CheckpointDir},
		{tagSessionKey, &m.SessionKey},
	}
	for _, f := range fields {
		v, ok := root.ChildText(f.tag)
		if !ok {
			return Metadata{}, fmt.Errorf("%w: <%s>", ErrMissingField, f.tag)
		}
		*f.dst = v
	}
	return m, nil
}

func encodeMetadata(root *xmlcodec.Node, m Metadata) {
	root.AddText(tagServerHost, m.ServerHost)
	root.AddText(tagServerURI, m.ServerURI)
	root.AddText(tagCheckpointDir, m.CheckpointDir)
	root.AddText(tagSessionKey, m.SessionKey)
}

// DecodeStanza builds a Stanza from a <stanza> or <item> element.
//
// All <param> children are applied first, then all <param_list> children,
// so a name used by both ends up with the list value. Among duplicates of
// the same kind the last one in document order wins.
func DecodeStanza(n *xmlcodec.Node) (Stanza, error) {
	s := Stanza{}
	for _, p := range n.ChildrenNamed(TagParam) {
		name, ok := p.Attr(attrName)
		if !ok {
			return nil, fmt.Errorf("%w: <%s> without name", ErrMissingField, TagParam)
		}
		s[name] = Scalar(p.Text)
	}
	for _, p := range n.ChildrenNamed(TagParamList) {
		name, ok := p.Attr(attrName)
		if !ok {
			return nil, fmt.Errorf("%w: <%s> without name", ErrMissingField, TagParamList)
		}
		values := []string{}
		for _, v := range p.ChildrenNamed(TagValue) {
			values = append(values, v.Text)
		}
		s[name] = List(values...)
	}
	return s, nil
}

// EncodeStanza renders s as an element named tag (stanza or item) with the
// given name attribute. Parameters are written in sorted name order.
func EncodeStanza(tag, name string, s Stanza) *xmlcodec.Node {
	n := xmlcodec.NewNode(tag).SetAttr(attrName, name)
	for _, k := range s.Names() {
		v := s[k]
		if !v.IsList() {
			n.AddText(TagParam, v.String()).SetAttr(attrName, k)
			continue
		}
		pl := n.AddChild(xmlcodec.NewNode(TagParamList)).SetAttr(attrName, k)
		for _, item := range v.Strings() {
			pl.AddText(TagValue, item)
		}
	}
	return n
}

// DecodeBundle decodes an <input> document.
func DecodeBundle(root *xmlcodec.Node) (*InputBundle, error) {
	if root == nil || root.Name != TagInput {
		return nil, fmt.Errorf("%w: root element is not <%s>", ErrDecode, TagInput)
	}

	meta, err := DecodeMetadata(root)
	if err != nil {
		return nil, err
	}

	b := &InputBundle{Metadata: meta, Inputs: map[string]Stanza{}}
	cfg, ok := root.Child(TagConfiguration)
	if !ok {
		return nil, fmt.Errorf("%w: <%s>", ErrMissingField, TagConfiguration)
	}
	for _, st := range cfg.ChildrenNamed(TagStanza) {
		name, ok := st.Attr(attrName)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: <%s> without name", ErrMissingField, TagStanza)
		}
		if _, dup := b.Inputs[name]; dup {
			return nil, fmt.Errorf("%w: duplicate stanza %q", ErrDecode, name)
		}
		s, err := DecodeStanza(st)
		if err != nil {
			return nil, fmt.Errorf("stanza %q: %w", name, err)
		}
		b.Inputs[name] = s
	}
	return b, nil
}

// EncodeBundle renders b as the <input> document the host would send.
func EncodeBundle(b *InputBundle) *xmlcodec.Node {
	root := xmlcodec.NewNode(TagInput)
	encodeMetadata(root, b.Metadata)
	cfg := root.AddChild(xmlcodec.NewNode(TagConfiguration))
	for _, name := range b.Names() {
		cfg.AddChild(EncodeStanza(TagStanza, name, b.Inputs[name]))
	}
	return root
}

// DecodeValidationRequest decodes an <items> document. It must hold
// exactly one <item>.
func DecodeValidationRequest(root *xmlcodec.Node) (*ValidationRequest, error) {
	if root == nil || root.Name != TagItems {
		return nil, fmt.Errorf("%w: root element is not <%s>", ErrDecode, TagItems)
	}

	meta, err := DecodeMetadata(root)
	if err != nil {
		return nil, err
	}

	items := root.ChildrenNamed(TagItem)
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("%w: <%s>", ErrMissingField, TagItem)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d <%s> elements, want 1", ErrDecode, len(items), TagItem)
	}

	name, ok := items[0].Attr(attrName)
	if !ok {
		return nil, fmt.Errorf("%w: <%s> without name", ErrMissingField, TagItem)
	}
	params, err := DecodeStanza(items[0])
	if err != nil {
		return nil, err
	}
	return &ValidationRequest{Metadata: meta, Name: name, Parameters: params}, nil
}

// EncodeValidationRequest renders r as the <items> document the host would
// send.
func EncodeValidationRequest(r *ValidationRequest) *xmlcodec.Node {
	root := xmlcodec.NewNode(TagItems)
	encodeMetadata(root, r.Metadata)
	root.AddChild(EncodeStanza(TagItem, r.Name, r.Parameters))
	return root
}
