// Package metrics counts what a run did: runs per mode and result, events
// and bytes per stanza, instance failures and durations.
//
// A modular input is a short-lived process with nothing to scrape, so the
// values are written to a file at exit with WriteTextfile.
package metrics
