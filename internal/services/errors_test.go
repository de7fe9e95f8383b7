package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(ErrValidation, "resolve", "probe clip", "Clip 3 unreadable", inner)

	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected validation marker")
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected inner error to survive wrapping")
	}
	want := "validation error: resolve: probe clip: Clip 3 unreadable: boom"
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}

func TestWrapNilMarkerFallsBackToTransient(t *testing.T) {
	err := Wrap(nil, "mix", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("expected transient marker")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{Wrap(ErrValidation, "s", "o", "m", nil), ExitValidation},
		{Wrap(ErrUnreadableAsset, "s", "o", "m", nil), ExitValidation},
		{Wrap(ErrMissingAsset, "s", "o", "m", nil), ExitNotFound},
		{Wrap(ErrNotFound, "s", "o", "m", nil), ExitNotFound},
		{Wrap(ErrConfiguration, "s", "o", "m", nil), ExitConfiguration},
		{Wrap(ErrExternalTool, "s", "o", "m", nil), ExitFailure},
		{fmt.Errorf("untagged"), ExitFailure},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
