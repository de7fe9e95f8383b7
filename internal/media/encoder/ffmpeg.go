package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

const defaultSampleRate = 48000

type runFunc func(ctx context.Context, binary string, args []string) ([]byte, error)

// FFmpeg implements Encoder by invoking the ffmpeg binary.
type FFmpeg struct {
	binary string
	logger *slog.Logger
	run    runFunc
}

// NewFFmpeg constructs the ffmpeg-backed encoder.
func NewFFmpeg(binary string, logger *slog.Logger) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}

// MixAudio renders one audio track of exact duration from the mix spec.
func (f *FFmpeg) MixAudio(ctx context.Context, spec MixSpec, output string) error {
	args, err := buildMixArgs(spec, output)
	if err != nil {
		return services.Wrap(services.ErrValidation, "encoder", "build mix", err.Error(), nil)
	}
	return f.invoke(ctx, "mix audio", args)
}

// Concat joins the spec inputs in order via the concat demuxer.
func (f *FFmpeg) Concat(ctx context.Context, spec ConcatSpec, output string) error {
	if len(spec.Inputs) == 0 {
		return services.Wrap(services.ErrValidation, "encoder", "concatenate", "no inputs", nil)
	}

	listPath, err := writeConcatList(spec.Inputs, output)
	if err != nil {
		return services.Wrap(services.ErrTransient, "encoder", "concatenate", "write concat list", err)
	}
	defer fileutil.RemoveQuiet(listPath)

	args := buildConcatArgs(spec, listPath, output)
	return f.invoke(ctx, "concatenate", args)
}

// Normalize conforms a single clip to the spec.
func (f *FFmpeg) Normalize(ctx context.Context, spec NormalizeSpec, output string) error {
	args, err := buildNormalizeArgs(spec, output)
	if err != nil {
		return services.Wrap(services.ErrValidation, "encoder", "normalize", err.Error(), nil)
	}
	return f.invoke(ctx, "normalize", args)
}

func (f *FFmpeg) invoke(ctx context.Context, operation string, args []string) error {
	f.logger.Debug("invoking ffmpeg",
		logging.String("operation", operation),
		logging.String("args", strings.Join(args, " ")),
	)
	out, err := f.run(ctx, f.binary, args)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "encoder", operation,
			tailLines(string(out), 6), err)
	}
	return nil
}

// writeConcatList writes a concat-demuxer list as a sibling of the output so
// relative staging paths cannot leak in and cleanup stays local.
func writeConcatList(inputs []string, output string) (string, error) {
	var b strings.Builder
	for _, input := range inputs {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(input, "'", `'\''`))
	}
	listPath := fileutil.TempSibling(output) + ".txt"
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return listPath, nil
}

func buildMixArgs(spec MixSpec, output string) ([]string, error) {
	if spec.Duration <= 0 {
		return nil, fmt.Errorf("mix duration must be positive")
	}
	sampleRate := spec.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	audioCodec := spec.AudioCodec
	if audioCodec == "" {
		audioCodec = "aac"
	}

	args := []string{"-hide_banner", "-y"}

	if spec.Background != "" {
		loops := spec.LoopCopies
		if loops < 1 {
			loops = 1
		}
		// -stream_loop N replays the input N extra times.
		args = append(args, "-stream_loop", strconv.Itoa(loops-1), "-i", spec.Background)
	} else {
		args = append(args,
			"-f", "lavfi",
			"-t", formatSeconds(spec.Duration),
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", sampleRate),
		)
	}

	for _, overlay := range spec.Overlays {
		args = append(args, "-i", overlay.Path)
	}

	var filter strings.Builder
	fmt.Fprintf(&filter, "[0:a]volume=%s[bg]", formatGain(spec.BackgroundGain))
	labels := []string{"[bg]"}
	for i, overlay := range spec.Overlays {
		label := fmt.Sprintf("[ov%d]", i+1)
		filter.WriteByte(';')
		fmt.Fprintf(&filter, "[%d:a]", i+1)
		if overlay.LimitSeconds > 0 {
			fmt.Fprintf(&filter, "atrim=0:%s,", formatSeconds(overlay.LimitSeconds))
		}
		delay := int(math.Round(overlay.OffsetSeconds * 1000))
		fmt.Fprintf(&filter, "adelay=%d:all=1%s", delay, label)
		labels = append(labels, label)
	}

	filter.WriteByte(';')
	if len(labels) == 1 {
		fmt.Fprintf(&filter, "[bg]volume=%s[mix]", formatGain(spec.MasterGain))
	} else {
		filter.WriteString(strings.Join(labels, ""))
		fmt.Fprintf(&filter, "amix=inputs=%d:duration=first:normalize=0,volume=%s[mix]",
			len(labels), formatGain(spec.MasterGain))
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[mix]",
		"-t", formatSeconds(spec.Duration),
		"-c:a", audioCodec,
		"-ar", strconv.Itoa(sampleRate),
		output,
	)
	return args, nil
}

func buildConcatArgs(spec ConcatSpec, listPath, output string) []string {
	args := []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", listPath}

	if spec.AudioTrack != "" {
		args = append(args, "-i", spec.AudioTrack, "-map", "0:v:0", "-map", "1:a:0")
	}

	var filters []string
	if spec.Duration > 0 {
		// Hold the last frame for a full target duration so the -t cut below
		// always lands inside the padded region, however short the stream ran.
		filters = append(filters, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(spec.Duration)))
	}
	if spec.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%d", spec.FPS))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	videoCodec := spec.VideoCodec
	if videoCodec == "" {
		videoCodec = "libx264"
	}
	args = append(args, "-c:v", videoCodec, "-pix_fmt", "yuv420p")

	audioCodec := spec.AudioCodec
	if audioCodec == "" {
		audioCodec = "aac"
	}
	args = append(args, "-c:a", audioCodec)

	if spec.Duration > 0 {
		args = append(args, "-t", formatSeconds(spec.Duration))
	}
	args = append(args, "-movflags", "+faststart", output)
	return args
}

func buildNormalizeArgs(spec NormalizeSpec, output string) ([]string, error) {
	if spec.Input == "" {
		return nil, fmt.Errorf("normalize input must not be empty")
	}
	if spec.Duration <= 0 {
		return nil, fmt.Errorf("normalize duration must be positive")
	}

	args := []string{"-hide_banner", "-y", "-i", spec.Input}

	if spec.Audio == AudioSilence {
		args = append(args,
			"-f", "lavfi",
			"-t", formatSeconds(spec.Duration),
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", defaultSampleRate),
			"-map", "0:v:0", "-map", "1:a:0",
		)
	}

	// Same pad-then-cut discipline as concatenation: the clone pad covers any
	// shortfall, so the output hits spec.Duration exactly.
	filters := []string{fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(spec.Duration))}
	if spec.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%d", spec.FPS))
	}
	if spec.Width > 0 && spec.Height > 0 {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", spec.Width, spec.Height))
	}
	args = append(args, "-vf", strings.Join(filters, ","))

	videoCodec := spec.VideoCodec
	if videoCodec == "" {
		videoCodec = "libx264"
	}
	args = append(args, "-c:v", videoCodec, "-pix_fmt", "yuv420p")

	switch spec.Audio {
	case AudioDrop:
		args = append(args, "-an")
	case AudioKeep, AudioSilence:
		audioCodec := spec.AudioCodec
		if audioCodec == "" {
			audioCodec = "aac"
		}
		args = append(args, "-c:a", audioCodec)
	}

	args = append(args, "-t", formatSeconds(spec.Duration), output)
	return args, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatGain(v float64) string {
	if v <= 0 {
		v = 1
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func tailLines(out string, n int) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
