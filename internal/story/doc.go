// Package story loads and validates the YAML story descriptors produced by
// the external story generator. A descriptor carries a title, a concept,
// and exactly one shot entry per policy shot; ids must be contiguous 1..N.
// Title, concept, descriptions, and per-shot generation modes are opaque
// pass-through metadata to the assembly pipeline.
package story
