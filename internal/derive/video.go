package derive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"album-service/internal/models"
)

// CommandRunner executes the external transcoding tool and captures its
// stderr stream. A non-zero exit is reported through code, not err; err is
// reserved for spawn failures.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stderr string, code int, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stderr.String(), exitErr.ExitCode(), nil
		}
		return stderr.String(), -1, err
	}
	return stderr.String(), 0, nil
}

// Video derives thumbnail, preview and technical metadata from an uploaded
// video by shelling out to ffmpeg. The tool only works on files, so every
// sub-operation stages the buffer to a uniquely named temp file and removes
// it on all exit paths. Each sub-operation carries an ordered list of
// argument sets tried until one succeeds; exhausting them yields an error the
// caller treats as a missing artifact, never as a failed ingestion.
type Video struct {
	FFmpegPath string
	TempDir    string // empty means os.TempDir

	runner CommandRunner
	log    *zap.SugaredLogger
}

func NewVideo(log *zap.SugaredLogger) *Video {
	return &Video{FFmpegPath: "ffmpeg", runner: execRunner{}, log: log}
}

// attempt is one parameter set for the tool. Fallback attempts reuse the same
// staging and cleanup path as the primary.
type attempt struct {
	name string
	args []string
}

const (
	thumbFilter = "scale=400:400:force_original_aspect_ratio=decrease,pad=400:400:(ow-iw)/2:(oh-ih)/2:black"

	// Scale down to fit 1280x720, never up, keeping libx264-safe even dims.
	previewFilter = "scale='min(iw,1280)':'min(ih,720)':force_original_aspect_ratio=decrease:force_divisible_by=2"
)

// Probe extracts duration, dimensions, frame rate and bitrate from the tool's
// diagnostic output. Fields that cannot be parsed stay nil.
func (v *Video) Probe(ctx context.Context, data []byte) (*models.VideoMetadata, error) {
	var meta *models.VideoMetadata
	err := v.withTempInput(data, func(in string) error {
		// Bare -i exits 1 ("no output produced") while still printing the
		// stream diagnostics, so 1 counts as success here.
		out, err := v.runAttempts(ctx, []attempt{
			{name: "probe", args: []string{"-hide_banner", "-i", in}},
			{name: "probe-null", args: []string{"-hide_banner", "-v", "info", "-i", in, "-f", "null", "-"}},
		}, 0, 1)
		if err != nil {
			return err
		}
		meta = parseProbeOutput(out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Thumbnail captures a single frame letterboxed to 400x400 as JPEG. The
// primary attempt takes the first frame; some uploads have a corrupt or black
// leading frame, so the fallback seeks to the 1-second mark instead.
func (v *Video) Thumbnail(ctx context.Context, data []byte) ([]byte, error) {
	var out []byte
	err := v.withTempInput(data, func(in string) error {
		outPath := in + "_thumb.jpg"
		defer os.Remove(outPath)
		_, err := v.runAttempts(ctx, []attempt{
			{name: "first-frame", args: []string{
				"-hide_banner", "-y", "-i", in,
				"-vframes", "1", "-vf", thumbFilter, outPath,
			}},
			{name: "seek-1s", args: []string{
				"-hide_banner", "-y", "-ss", "00:00:01", "-i", in,
				"-vframes", "1", "-vf", thumbFilter, outPath,
			}},
		}, 0)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(outPath)
		if err != nil {
			return fmt.Errorf("read thumbnail output: %w", err)
		}
		out = b
		return nil
	})
	return out, err
}

// Preview transcodes to an H.264/AAC MP4 bounded to 1280x720, front-loaded
// for progressive playback. The fallback trades quality for the most
// compatible encoder settings.
func (v *Video) Preview(ctx context.Context, data []byte) ([]byte, error) {
	var out []byte
	err := v.withTempInput(data, func(in string) error {
		outPath := in + "_preview.mp4"
		defer os.Remove(outPath)
		_, err := v.runAttempts(ctx, []attempt{
			{name: "balanced", args: []string{
				"-hide_banner", "-y", "-i", in,
				"-vf", previewFilter,
				"-c:v", "libx264", "-preset", "medium", "-crf", "26",
				"-c:a", "aac", "-b:a", "128k",
				"-movflags", "+faststart", outPath,
			}},
			{name: "compat", args: []string{
				"-hide_banner", "-y", "-i", in,
				"-vf", previewFilter,
				"-c:v", "libx264", "-preset", "ultrafast", "-crf", "30",
				"-profile:v", "baseline", "-level", "3.0",
				"-c:a", "aac", "-b:a", "96k", "-ac", "2",
				"-movflags", "+faststart", outPath,
			}},
		}, 0)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(outPath)
		if err != nil {
			return fmt.Errorf("read preview output: %w", err)
		}
		out = b
		return nil
	})
	return out, err
}

// withTempInput stages the buffer to a uniquely named temp file and
// guarantees its removal whether fn succeeds, the tool fails, or the write
// itself fails.
func (v *Video) withTempInput(data []byte, fn func(path string) error) error {
	f, err := os.CreateTemp(v.TempDir, "albumsvc-*.vid")
	if err != nil {
		return fmt.Errorf("stage temp input: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("stage temp input: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("stage temp input: %w", err)
	}
	return fn(path)
}

// runAttempts tries each argument set in order until one exits with a code in
// okCodes, returning that attempt's stderr. Spawn failures and bad exits both
// fall through to the next attempt.
func (v *Video) runAttempts(ctx context.Context, attempts []attempt, okCodes ...int) (string, error) {
	var lastErr error
	for _, a := range attempts {
		stderr, code, err := v.runner.Run(ctx, v.FFmpegPath, a.args)
		if err != nil {
			v.log.Warnw("transcoder spawn failed", "attempt", a.name, "err", err)
			lastErr = err
			continue
		}
		ok := false
		for _, c := range okCodes {
			if code == c {
				ok = true
				break
			}
		}
		if ok {
			return stderr, nil
		}
		v.log.Warnw("transcoder attempt failed", "attempt", a.name, "exit_code", code)
		lastErr = fmt.Errorf("%s exited with code %d", a.name, code)
	}
	return "", fmt.Errorf("all transcoder attempts failed: %w", lastErr)
}

var (
	durationRe  = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})\.(\d+)`)
	dimensionRe = regexp.MustCompile(`,\s*(\d{2,5})x(\d{2,5})`)
	frameRateRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*fps`)
	bitrateRe   = regexp.MustCompile(`bitrate:\s*(\d+)\s*kb/s`)
)

// parseProbeOutput scrapes the tool's textual diagnostics. Anything that does
// not match stays nil; partial metadata is valid.
func parseProbeOutput(out string) *models.VideoMetadata {
	meta := &models.VideoMetadata{}

	if m := durationRe.FindStringSubmatch(out); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		frac, _ := strconv.ParseFloat("0."+m[4], 64)
		d := float64(h*3600+min*60+sec) + frac
		meta.DurationSeconds = &d
	}
	if m := dimensionRe.FindStringSubmatch(out); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		meta.Width = &w
		meta.Height = &h
	}
	if m := frameRateRe.FindStringSubmatch(out); m != nil {
		if fps, err := strconv.ParseFloat(m[1], 64); err == nil {
			meta.FrameRate = &fps
		}
	}
	if m := bitrateRe.FindStringSubmatch(out); m != nil {
		if kbps, err := strconv.Atoi(m[1]); err == nil {
			meta.BitrateKbps = &kbps
		}
	}
	return meta
}
