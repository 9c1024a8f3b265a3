package definition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

// DataType is the type the host uses to check an argument's value.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
)

// StreamingMode selects how the host reads the script's output.
type StreamingMode string

const (
	StreamingModeXML    StreamingMode = "xml"
	StreamingModeSimple StreamingMode = "simple"
)

const (
	TagScheme = "scheme"

	tagTitle                 = "title"
	tagDescription           = "description"
	tagUseExternalValidation = "use_external_validation"
	tagUseSingleInstance     = "use_single_instance"
	tagStreamingMode         = "streaming_mode"
	tagEndpoint              = "endpoint"
	tagArgs                  = "args"
	tagArg                   = "arg"
	tagDataType              = "data_type"
	tagValidation            = "validation"
	tagRequiredOnCreate      = "required_on_create"
	tagRequiredOnEdit        = "required_on_edit"
)

// Argument describes one configurable parameter of an input kind.
// Validation is an opaque rule expression evaluated by the host.
type Argument struct {
	Name             string
	Title            string
	Description      string
	Validation       string
	DataType         DataType
	RequiredOnCreate bool
	RequiredOnEdit   bool
}

// NewArgument returns an argument with the host defaults: a string that is
// required on create and optional on edit.
func NewArgument(name string) Argument {
	return Argument{
		Name:             name,
		DataType:         DataTypeString,
		RequiredOnCreate: true,
	}
}

// Scheme is the self-description returned for --scheme.
type Scheme struct {
	Title                 string
	Description           string
	UseExternalValidation bool
	UseSingleInstance     bool
	StreamingMode         StreamingMode
	Arguments             []Argument
}

// NewScheme returns a scheme with external validation enabled, one script
// instance per stanza and XML streaming.
func NewScheme(title string) *Scheme {
	return &Scheme{
		Title:                 title,
		UseExternalValidation: true,
		StreamingMode:         StreamingModeXML,
	}
}

// AddArgument appends arg to the argument list.
func (s *Scheme) AddArgument(arg Argument) {
	s.Arguments = append(s.Arguments, arg)
}

// Validate checks the scheme before it is sent to the host.
func (s *Scheme) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("scheme: title is required")
	}
	switch s.StreamingMode {
	case "", StreamingModeXML, StreamingModeSimple:
	default:
		return fmt.Errorf("scheme: unknown streaming mode %q", s.StreamingMode)
	}
	seen := make(map[string]bool, len(s.Arguments))
	for i, a := range s.Arguments {
		if a.Name == "" {
			return fmt.Errorf("scheme: argument %d has no name", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("scheme: duplicate argument %q", a.Name)
		}
		seen[a.Name] = true
		switch a.DataType {
		case "", DataTypeString, DataTypeNumber, DataTypeBoolean:
		default:
			return fmt.Errorf("scheme: argument %q has unknown data type %q", a.Name, a.DataType)
		}
	}
	return nil
}

// EncodeScheme renders s as a <scheme> document. Arguments keep their
// declared order and empty optional fields are left out.
func EncodeScheme(s *Scheme) *xmlcodec.Node {
	root := xmlcodec.NewNode(TagScheme)
	root.AddText(tagTitle, s.Title)
	root.AddOptional(tagDescription, s.Description)
	root.AddText(tagUseExternalValidation, strconv.FormatBool(s.UseExternalValidation))
	root.AddText(tagUseSingleInstance, strconv.FormatBool(s.UseSingleInstance))

	mode := s.StreamingMode
	if mode == "" {
		mode = StreamingModeXML
	}
	root.AddText(tagStreamingMode, string(mode))

	args := root.AddChild(xmlcodec.NewNode(tagEndpoint)).AddChild(xmlcodec.NewNode(tagArgs))
	for _, a := range s.Arguments {
		args.AddChild(encodeArgument(a))
	}
	return root
}

func encodeArgument(a Argument) *xmlcodec.Node {
	n := xmlcodec.NewNode(tagArg).SetAttr(attrName, a.Name)
	n.AddOptional(tagTitle, a.Title)

	dt := a.DataType
	if dt == "" {
		dt = DataTypeString
	}
	n.AddText(tagDataType, string(dt))
	n.AddOptional(tagDescription, a.Description)
	n.AddOptional(tagValidation, a.Validation)
	n.AddText(tagRequiredOnCreate, strconv.FormatBool(a.RequiredOnCreate))
	n.AddText(tagRequiredOnEdit, strconv.FormatBool(a.RequiredOnEdit))
	return n
}

// DecodeScheme parses a <scheme> document. Missing optional elements take
// the defaults of NewScheme and NewArgument.
func DecodeScheme(root *xmlcodec.Node) (*Scheme, error) {
	if root == nil || root.Name != TagScheme {
		return nil, fmt.Errorf("%w: root element is not <%s>", ErrDecode, TagScheme)
	}

	title, ok := root.ChildText(tagTitle)
	if !ok {
		return nil, fmt.Errorf("%w: <%s>", ErrMissingField, tagTitle)
	}
	s := NewScheme(title)
	s.Description, _ = root.ChildText(tagDescription)

	var err error
	if s.UseExternalValidation, err = optionalBool(root, tagUseExternalValidation, s.UseExternalValidation); err != nil {
		return nil, err
	}
	if s.UseSingleInstance, err = optionalBool(root, tagUseSingleInstance, s.UseSingleInstance); err != nil {
		return nil, err
	}
	if mode, ok := root.ChildText(tagStreamingMode); ok && mode != "" {
		s.StreamingMode = StreamingMode(strings.ToLower(mode))
	}

	endpoint, _ := root.Child(tagEndpoint)
	args, _ := endpoint.Child(tagArgs)
	for _, an := range args.ChildrenNamed(tagArg) {
		a, err := decodeArgument(an)
		if err != nil {
			return nil, err
		}
		s.Arguments = append(s.Arguments, a)
	}
	return s, nil
}

func decodeArgument(n *xmlcodec.Node) (Argument, error) {
	name, ok := n.Attr(attrName)
	if !ok {
		return Argument{}, fmt.Errorf("%w: <%s> without name", ErrMissingField, tagArg)
	}
	a := NewArgument(name)
	a.Title, _ = n.ChildText(tagTitle)
	a.Description, _ = n.ChildText(tagDescription)
	a.Validation, _ = n.ChildText(tagValidation)
	if dt, ok := n.ChildText(tagDataType); ok && dt != "" {
		a.DataType = DataType(strings.ToLower(dt))
	}

	var err error
	if a.RequiredOnCreate, err = optionalBool(n, tagRequiredOnCreate, a.RequiredOnCreate); err != nil {
		return Argument{}, err
	}
	if a.RequiredOnEdit, err = optionalBool(n, tagRequiredOnEdit, a.RequiredOnEdit); err != nil {
		return Argument{}, err
	}
	return a, nil
}

func optionalBool(n *xmlcodec.Node, tag string, def bool) (bool, error) {
	v, ok := n.ChildText(tag)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: <%s>: %w", ErrDecode, tag, err)
	}
	return b, nil
}
