// Package assets discovers and validates the media files the external
// generators leave behind for a story: the ordered per-shot clips, the
// looping background track, and optional per-shot diegetic audio. The
// resolver is read-only; it reports what exists, classifies duration drift
// for the assembler's trim/pad correction, and fails fast on gaps and
// undecodable files.
package assets
