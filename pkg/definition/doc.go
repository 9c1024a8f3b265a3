// Package definition holds the configuration model exchanged with the host:
// run metadata, per-instance stanzas, validation requests and the scheme an
// input kind declares about itself.
//
// Stanza parameters are modeled as a tagged [Value]: a scalar produced by a
// <param> element or an ordered list produced by a <param_list> element.
// Decoding applies every <param> before any <param_list>, so when both use
// the same name the list is kept.
package definition
