package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`final: cut*`); got != "final- cut-" {
		t.Errorf("unexpected sanitized name %q", got)
	}
	if got := SanitizeFileName("a<b>c|d?"); got != "abcd" {
		t.Errorf("unexpected sanitized name %q", got)
	}
}

func TestSanitizeFileNameStaysOneSegment(t *testing.T) {
	cases := map[string]string{
		"../escape":   "-escape",
		"a/b\\c":      "a-b-c",
		"..":          "",
		".hidden":     "hidden",
		"bath_time_3": "bath_time_3",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"bath_time":       "Bath Time",
		"story-1.lemonade": "Story 1 Lemonade",
		"":                "Untitled Story",
		"___":             "Untitled Story",
	}
	for input, want := range cases {
		if got := DisplayTitle(input); got != want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", input, got, want)
		}
	}
}
