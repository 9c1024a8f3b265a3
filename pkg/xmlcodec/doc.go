// Package xmlcodec maps XML text to a generic element tree and back.
//
// A document is a tree of [Node] values. Each node carries its attributes,
// its trimmed character data and its child elements in document order.
// The conventions used by the rest of the module are:
//
//   - Attributes and child elements live in separate fields. [Node.Lookup]
//     addresses attributes with the "@" prefix and the node's own text with
//     "#text".
//   - A text-only child collapses to a string through [Node.ChildText].
//   - A child tag is always read as a list through [Node.ChildrenNamed],
//     whether it appears once or many times.
//   - [Node.AddOptional] never emits an element for an empty value, while
//     [Node.AddText] always does.
//
// [Unmarshal] either returns the whole tree or an error wrapping
// [ErrMalformedDocument]; it never returns a partial result.
package xmlcodec
