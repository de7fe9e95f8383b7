package policy

import (
	"math"
	"testing"
)

func TestTotalDuration(t *testing.T) {
	if got := Landscape().TotalDuration(); got != 120.0 {
		t.Fatalf("landscape total duration = %v, want 120", got)
	}
	if got := Portrait().TotalDuration(); got != 60.0 {
		t.Fatalf("portrait total duration = %v, want 60", got)
	}
}

func TestShotOffset(t *testing.T) {
	f := Landscape()
	if got := f.ShotOffset(1); got != 0 {
		t.Fatalf("shot 1 offset = %v, want 0", got)
	}
	if got := f.ShotOffset(15); got != 112 {
		t.Fatalf("shot 15 offset = %v, want 112", got)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"landscape", "Landscape", "", "normal"} {
		f, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if f.Name != NameLandscape {
			t.Fatalf("ByName(%q) = %s", name, f.Name)
		}
	}
	if f, err := ByName("short"); err != nil || f.Name != NamePortrait {
		t.Fatalf("ByName(short) = %v, %v", f.Name, err)
	}
	if _, err := ByName("square"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestWithinTolerance(t *testing.T) {
	f := Landscape()
	if !f.WithinTolerance(8.2) {
		t.Fatal("8.2s should be within tolerance of 8s")
	}
	if f.WithinTolerance(8.3) {
		t.Fatal("8.3s should exceed tolerance of 0.25s")
	}
}

func TestValidate(t *testing.T) {
	for _, f := range []Format{Landscape(), Portrait()} {
		if err := f.Validate(); err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
	}
	bad := Landscape()
	bad.ShotCount = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero shot count")
	}
}

func TestGainFromDB(t *testing.T) {
	if got := GainFromDB(0); got != 1 {
		t.Fatalf("0 dB = %v, want 1", got)
	}
	if got := GainFromDB(-6.02); math.Abs(got-0.5) > 0.001 {
		t.Fatalf("-6.02 dB = %v, want ~0.5", got)
	}
}
