// Package event models the records an input emits and their <event>
// encoding inside the output stream.
//
// Times are written as epoch seconds with millisecond precision:
//
//	event.FormatTime(time.Unix(1372187084, 0))    // "1372187084.000"
//	event.FormatTime(time.UnixMilli(1372187084424)) // "1372187084.424"
//
// Records longer than the host accepts in one piece can be split: every
// piece sets Fragment, and only the last one sets Final.
package event
