package encoder

import "context"

// OverlaySpec places one diegetic audio file at an offset in the mix.
type OverlaySpec struct {
	Path          string
	OffsetSeconds float64
	// LimitSeconds truncates the overlay to its shot window. 0 keeps the
	// overlay's natural duration.
	LimitSeconds float64
}

// MixSpec describes one mixed audio track of exact duration.
type MixSpec struct {
	// Background is the looping background track. Empty renders a silence
	// bed instead (only valid when the silent fallback policy allows it).
	Background string
	// LoopCopies is the total number of background copies played, the last
	// one trimmed by the duration cut. Minimum 1.
	LoopCopies     int
	BackgroundGain float64
	Overlays       []OverlaySpec
	MasterGain     float64
	// Duration is the exact output duration in seconds.
	Duration   float64
	AudioCodec string
	SampleRate int
}

// ConcatSpec describes an ordered concatenation of media files.
type ConcatSpec struct {
	Inputs []string
	// AudioTrack, when set, replaces all embedded audio wholesale.
	// When empty each input's own audio is carried through.
	AudioTrack string
	// Duration, when positive, is enforced exactly: short video is padded by
	// holding the last frame, long video is trimmed from the tail.
	Duration   float64
	FPS        int
	VideoCodec string
	AudioCodec string
}

// AudioPolicy selects how Normalize treats the input's audio.
type AudioPolicy int

const (
	// AudioDrop discards embedded audio.
	AudioDrop AudioPolicy = iota
	// AudioKeep carries the input's audio through.
	AudioKeep
	// AudioSilence replaces audio with a silent stereo bed.
	AudioSilence
)

// NormalizeSpec conforms a single clip to a policy: exact duration
// (tail trim or hold-last-frame pad), frame rate, optional rescale.
type NormalizeSpec struct {
	Input    string
	Duration float64
	// Width/Height of 0 keep the input resolution.
	Width      int
	Height     int
	FPS        int
	VideoCodec string
	AudioCodec string
	Audio      AudioPolicy
}

// Encoder is the media-processing capability the pipeline stages depend on.
type Encoder interface {
	MixAudio(ctx context.Context, spec MixSpec, output string) error
	Concat(ctx context.Context, spec ConcatSpec, output string) error
	Normalize(ctx context.Context, spec NormalizeSpec, output string) error
}
