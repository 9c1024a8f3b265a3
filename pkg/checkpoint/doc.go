// Package checkpoint stores per-instance resume points in the checkpoint
// directory the host hands to every streaming run.
//
// Files are written atomically, so a process killed mid-save leaves the
// previous checkpoint intact.
package checkpoint
