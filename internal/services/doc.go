// Package services defines the shared error taxonomy and context annotations
// used by every pipeline stage. Stage errors are tagged with a sentinel
// marker so callers can classify failures (validation, missing asset,
// unreadable asset, external tool) without inspecting stage internals.
package services
