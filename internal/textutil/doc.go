// Package textutil provides text helpers for filesystem-safe path segments
// and human-readable display titles.
package textutil
