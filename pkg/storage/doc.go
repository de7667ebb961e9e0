// Package storage owns the output directory and the files written into it.
//
// NewManager creates the directory when it is missing; a failure there is the
// one fatal condition of a run. SaveImage streams a reader into
// <dir>/<keyword_with_underscores>_<id>.jpg in fixed-size chunks through a
// temporary file that is renamed into place, so a failed transfer never
// leaves a truncated image under the final name. Existing files are replaced.
//
// Read failures and write failures are reported with different error kinds
// (network and storage) so callers can tell a dropped connection from a full
// disk.
package storage
