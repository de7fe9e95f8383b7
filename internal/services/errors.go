package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks declarative policy violations (missing shots,
	// malformed descriptors, duration drift beyond the correction policy).
	ErrValidation = errors.New("validation error")
	// ErrMissingAsset marks a required input file that does not exist.
	ErrMissingAsset = errors.New("missing asset")
	// ErrUnreadableAsset marks an input file that exists but cannot be decoded.
	ErrUnreadableAsset = errors.New("unreadable asset")
	// ErrExternalTool marks encode/probe subprocess failures.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing artifacts or manifest entries.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Exit status values for the CLI, one per error class.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitValidation    = 2
	ExitNotFound      = 3
	ExitConfiguration = 4
)

// ExitCode maps a pipeline error to the CLI exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnreadableAsset):
		return ExitValidation
	case errors.Is(err, ErrMissingAsset), errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	default:
		return ExitFailure
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
