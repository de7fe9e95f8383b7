package policy

import (
	"fmt"
	"math"
	"strings"
)

// Format names recognized by ByName.
const (
	NameLandscape = "landscape"
	NamePortrait  = "portrait"
)

// Format fixes the timing and presentation contract for one output style.
// All shot clips governed by a format must match ShotDuration within
// DurationTolerance; the assembled story runs exactly TotalDuration.
type Format struct {
	Name         string
	ShotCount    int
	ShotDuration float64 // seconds per shot
	Width        int
	Height       int
	FPS          int

	// DurationTolerance is the allowed per-clip drift before the trim/pad
	// correction kicks in.
	DurationTolerance float64

	// BackgroundGain attenuates the background track so diegetic audio
	// stays intelligible; MasterGain scales the final combined mix.
	// Both are linear amplitude factors.
	BackgroundGain float64
	MasterGain     float64
}

// Landscape is the long-form policy: 15 shots of 8 seconds at 1920x1080.
func Landscape() Format {
	return Format{
		Name:              NameLandscape,
		ShotCount:         15,
		ShotDuration:      8,
		Width:             1920,
		Height:            1080,
		FPS:               24,
		DurationTolerance: 0.25,
		BackgroundGain:    0.6,
		MasterGain:        0.85,
	}
}

// Portrait is the short-form policy: 15 shots of 4 seconds at 1080x1920.
func Portrait() Format {
	f := Landscape()
	f.Name = NamePortrait
	f.ShotDuration = 4
	f.Width = 1080
	f.Height = 1920
	return f
}

// ByName returns the named format policy.
func ByName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameLandscape, "", "normal", "long":
		return Landscape(), nil
	case NamePortrait, "short":
		return Portrait(), nil
	default:
		return Format{}, fmt.Errorf("unknown format policy %q (expected %s or %s)", name, NameLandscape, NamePortrait)
	}
}

// TotalDuration is the exact duration of an assembled story video.
func (f Format) TotalDuration() float64 {
	return float64(f.ShotCount) * f.ShotDuration
}

// ShotOffset is the start offset of the given 1-based shot id within the story.
func (f Format) ShotOffset(shotID int) float64 {
	return float64(shotID-1) * f.ShotDuration
}

// WithinTolerance reports whether a clip duration satisfies the policy.
func (f Format) WithinTolerance(duration float64) bool {
	return math.Abs(duration-f.ShotDuration) <= f.DurationTolerance
}

// Validate ensures the policy is internally consistent.
func (f Format) Validate() error {
	switch {
	case f.ShotCount <= 0:
		return fmt.Errorf("policy %s: shot count must be positive", f.Name)
	case f.ShotDuration <= 0:
		return fmt.Errorf("policy %s: shot duration must be positive", f.Name)
	case f.Width <= 0 || f.Height <= 0:
		return fmt.Errorf("policy %s: resolution must be positive", f.Name)
	case f.FPS <= 0:
		return fmt.Errorf("policy %s: fps must be positive", f.Name)
	case f.DurationTolerance < 0:
		return fmt.Errorf("policy %s: duration tolerance must not be negative", f.Name)
	case f.BackgroundGain < 0 || f.MasterGain <= 0:
		return fmt.Errorf("policy %s: gains must be positive", f.Name)
	}
	return nil
}

// GainFromDB converts a decibel volume to a linear amplitude factor.
func GainFromDB(db float64) float64 {
	return math.Pow(10, db/20)
}
