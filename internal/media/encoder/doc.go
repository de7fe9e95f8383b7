// Package encoder abstracts the media-processing engine behind a small
// capability interface: concatenate, mix audio, normalize (trim/pad/scale).
// Pipeline stages depend on the interface only; the ffmpeg implementation
// keeps all invocation details in one place and is swappable in tests.
package encoder
