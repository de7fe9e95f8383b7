package assets

import (
	"fmt"
	"path/filepath"

	"storyreel/internal/policy"
	"storyreel/internal/story"
)

// Correction classifies the duration fix a clip needs before concatenation.
type Correction int

const (
	CorrectionNone Correction = iota
	// CorrectionTrim cuts the clip tail down to the policy shot duration.
	CorrectionTrim
	// CorrectionPad holds the clip's last frame up to the policy shot duration.
	CorrectionPad
)

func (c Correction) String() string {
	switch c {
	case CorrectionTrim:
		return "trim"
	case CorrectionPad:
		return "pad"
	default:
		return "none"
	}
}

// ClipAsset is one validated per-shot video file.
type ClipAsset struct {
	ShotID   int
	Path     string
	Duration float64
	Width    int
	Height   int
	Codec    string
	// Drift is duration minus the policy shot duration; Correction is the
	// fix applied when drift exceeds tolerance.
	Drift      float64
	Correction Correction
}

// AudioAsset is a background or diegetic audio file.
type AudioAsset struct {
	Path     string
	Duration float64
	// Loop marks the asset as tileable to an arbitrary target duration.
	// True for the background track, never for diegetic audio.
	Loop bool
}

// Bundle is the resolved input set for one story.
type Bundle struct {
	Story  *story.Story
	Policy policy.Format
	// Clips is ordered by ascending shot id with no gaps.
	Clips []ClipAsset
	// Background is nil only when the silent fallback policy is active.
	Background *AudioAsset
	// Diegetic maps shot id to its optional overlay audio.
	Diegetic map[int]AudioAsset
}

// CorrectionsNeeded returns the clips whose duration drifted beyond tolerance.
func (b *Bundle) CorrectionsNeeded() []ClipAsset {
	var out []ClipAsset
	for _, clip := range b.Clips {
		if clip.Correction != CorrectionNone {
			out = append(out, clip)
		}
	}
	return out
}

// ReportRows renders the validation report as table rows:
// shot, file, duration, drift, correction, diegetic audio.
func (b *Bundle) ReportRows() [][]string {
	rows := make([][]string, 0, len(b.Clips))
	for _, clip := range b.Clips {
		diegetic := "-"
		if audio, ok := b.Diegetic[clip.ShotID]; ok {
			diegetic = filepath.Base(audio.Path)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", clip.ShotID),
			filepath.Base(clip.Path),
			fmt.Sprintf("%.2fs", clip.Duration),
			fmt.Sprintf("%+.2fs", clip.Drift),
			clip.Correction.String(),
			diegetic,
		})
	}
	return rows
}
