// Package xmlstream turns a byte stream into discrete XML documents and
// writes documents and fragments back to a shared output.
//
// [Reader] frames one top-level element at a time under a deadline
// ([DefaultReadTimeout] unless configured). [Writer] serializes writes from
// any number of goroutines onto one sink and keeps a stack of open
// containers so that fragments can be written inside a long-lived element
// such as <stream>.
package xmlstream
