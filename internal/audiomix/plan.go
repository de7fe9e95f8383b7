// Package audiomix renders one exact-duration audio track per story: the
// background music looped to the story length, attenuated, with diegetic
// overlays dropped in at their shot offsets, then scaled by the master gain.
package audiomix

import (
	"fmt"
	"math"
	"sort"

	"storyreel/internal/assets"
	"storyreel/internal/media/encoder"
)

// Plan is the deterministic mix layout for one story. Building it is pure
// arithmetic; rendering happens separately so tests can assert the layout
// without an encoder.
type Plan struct {
	// Target is the exact mix duration, the policy's total story duration.
	Target float64

	// Background is the looping track path, empty for a silence bed.
	Background         string
	BackgroundDuration float64
	// LoopCopies is the number of background copies played in sequence; the
	// last is cut at Target. FullCopies and Remainder break that down:
	// FullCopies whole plays plus Remainder seconds of one more.
	LoopCopies int
	FullCopies int
	Remainder  float64
	// TailTrim is how much of the final copy the duration cut discards.
	TailTrim float64

	BackgroundGain float64
	MasterGain     float64

	// Overlays is ordered by shot id.
	Overlays []encoder.OverlaySpec
}

// BuildPlan lays out the mix for a resolved bundle.
func BuildPlan(bundle *assets.Bundle) (Plan, error) {
	pol := bundle.Policy
	plan := Plan{
		Target:         pol.TotalDuration(),
		BackgroundGain: pol.BackgroundGain,
		MasterGain:     pol.MasterGain,
	}
	if plan.Target <= 0 {
		return Plan{}, fmt.Errorf("mix target duration must be positive")
	}

	if bg := bundle.Background; bg != nil {
		if bg.Duration <= 0 {
			return Plan{}, fmt.Errorf("background track %s has no duration", bg.Path)
		}
		plan.Background = bg.Path
		plan.BackgroundDuration = bg.Duration
		plan.LoopCopies = int(math.Ceil(plan.Target / bg.Duration))
		plan.FullCopies = int(math.Floor(plan.Target / bg.Duration))
		plan.Remainder = plan.Target - float64(plan.FullCopies)*bg.Duration
		plan.TailTrim = float64(plan.LoopCopies)*bg.Duration - plan.Target
		if plan.Remainder < 1e-9 {
			// Exact multiple: the "remainder" copy is a whole play.
			plan.Remainder = 0
			plan.LoopCopies = plan.FullCopies
			plan.TailTrim = 0
		}
	}

	shotIDs := make([]int, 0, len(bundle.Diegetic))
	for id := range bundle.Diegetic {
		shotIDs = append(shotIDs, id)
	}
	sort.Ints(shotIDs)
	for _, id := range shotIDs {
		audio := bundle.Diegetic[id]
		overlay := encoder.OverlaySpec{
			Path:          audio.Path,
			OffsetSeconds: pol.ShotOffset(id),
		}
		if audio.Duration > pol.ShotDuration {
			overlay.LimitSeconds = pol.ShotDuration
		}
		plan.Overlays = append(plan.Overlays, overlay)
	}
	return plan, nil
}

// Spec converts the plan to the encoder's mix specification.
func (p Plan) Spec(audioCodec string) encoder.MixSpec {
	return encoder.MixSpec{
		Background:     p.Background,
		LoopCopies:     p.LoopCopies,
		BackgroundGain: p.BackgroundGain,
		Overlays:       p.Overlays,
		MasterGain:     p.MasterGain,
		Duration:       p.Target,
		AudioCodec:     audioCodec,
	}
}
