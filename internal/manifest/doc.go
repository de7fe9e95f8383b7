// Package manifest persists the artifact index backing idempotence checks:
// a SQLite table mapping logical artifact keys (story videos, mixes, the
// bumper, final videos) to their path, duration, checksum, and status.
// Stages consult the manifest before re-encoding and record every artifact
// they promote. Entries are re-validated against the file on disk, so a
// deleted or replaced artifact is never trusted blindly.
package manifest
