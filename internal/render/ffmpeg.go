package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/media/ffprobe"
	"autotube/internal/services"
	"autotube/internal/stage"
)

const (
	// VideoFileName is the rendered output inside the job directory.
	VideoFileName   = "video.mp4"
	CaptionFileName = "captions.srt"
)

// Config controls the ffmpeg invocation.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	Width         int
	Height        int
	FPS           int
	FontSize      int
	// Backgrounds maps tone names to ffmpeg colors.
	Backgrounds map[string]string
	MinFreeMiB  int64
}

// Renderer implements stage.VideoRenderer with ffmpeg.
type Renderer struct {
	cfg    Config
	logger *slog.Logger
}

// NewRenderer fills unset dimensions with a 1080x1920 portrait frame.
func NewRenderer(cfg Config, logger *slog.Logger) *Renderer {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(cfg.FFprobeBinary) == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.Width <= 0 {
		cfg.Width = 1080
	}
	if cfg.Height <= 0 {
		cfg.Height = 1920
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = 18
	}
	return &Renderer{cfg: cfg, logger: logging.NewComponentLogger(logger, "render")}
}

// Render implements stage.VideoRenderer.
func (r *Renderer) Render(ctx context.Context, req stage.RenderRequest) (stage.RenderedVideo, error) {
	if strings.TrimSpace(req.Narration.AudioPath) == "" {
		return stage.RenderedVideo{}, services.Wrap(services.ErrValidation, string(stage.NameRender), "", "no narration track", nil)
	}
	if err := checkFreeSpace(req.WorkDir, r.cfg.MinFreeMiB); err != nil {
		return stage.RenderedVideo{}, err
	}

	captionPath := filepath.Join(req.WorkDir, CaptionFileName)
	if err := writeCaptions(captionPath, BuildCues(req.Script, req.Narration.DurationSec)); err != nil {
		return stage.RenderedVideo{}, services.Wrap(services.ErrExternalTool, string(stage.NameRender), "write captions", "", err)
	}

	output := filepath.Join(req.WorkDir, VideoFileName)
	partial := filepath.Join(req.WorkDir, "video.partial.mp4")
	args := r.Args(req.Narration.AudioPath, captionPath, req.Tone, partial)
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("running ffmpeg", logging.String("command", r.cfg.FFmpegBinary+" "+strings.Join(args, " ")))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.cfg.FFmpegBinary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stage.RenderedVideo{}, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return stage.RenderedVideo{}, services.Wrap(services.ErrConfiguration, string(stage.NameRender), "ffmpeg",
				fmt.Sprintf("binary %q not found", r.cfg.FFmpegBinary), err)
		}
		return stage.RenderedVideo{}, services.Wrap(services.ErrExternalTool, string(stage.NameRender), "ffmpeg", tail(stderr.String(), 6), err)
	}
	if err := os.Rename(partial, output); err != nil {
		return stage.RenderedVideo{}, services.Wrap(services.ErrExternalTool, string(stage.NameRender), "finalize", "", err)
	}

	video := stage.RenderedVideo{Path: output, Width: r.cfg.Width, Height: r.cfg.Height}
	probe, err := ffprobe.Inspect(ctx, r.cfg.FFprobeBinary, output)
	if err == nil {
		video.DurationSec = probe.DurationSeconds()
		if w, h := probe.VideoSize(); w > 0 && h > 0 {
			video.Width, video.Height = w, h
		}
	}
	if err != nil || video.DurationSec <= 0 {
		video.DurationSec = req.Narration.DurationSec
		logging.WarnWithContext(logger, "rendered duration not probed", "duration_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffprobe to report the realized video length"),
			logging.String(logging.FieldImpact, "reported duration is the narration length"),
		)
	}
	return video, nil
}

// Args builds the ffmpeg argument list.
func (r *Renderer) Args(audioPath, captionPath string, tone jobs.Tone, output string) []string {
	background := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", r.background(tone), r.cfg.Width, r.cfg.Height, r.cfg.FPS)
	subtitles := fmt.Sprintf("subtitles=%s:force_style='FontSize=%d,Alignment=2,MarginV=120,Outline=2'", escapeFilterPath(captionPath), r.cfg.FontSize)
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", background,
		"-i", audioPath,
		"-vf", subtitles,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "160k",
		"-r", strconv.Itoa(r.cfg.FPS),
		"-movflags", "+faststart",
		"-shortest",
		output,
	}
}

func (r *Renderer) background(tone jobs.Tone) string {
	if color := strings.TrimSpace(r.cfg.Backgrounds[string(tone)]); color != "" {
		return color
	}
	return "black"
}

// HealthCheck implements stage.HealthChecker.
func (r *Renderer) HealthCheck(context.Context) stage.Health {
	name := string(stage.NameRender)
	if _, err := exec.LookPath(r.cfg.FFmpegBinary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", r.cfg.FFmpegBinary))
	}
	if _, err := exec.LookPath(r.cfg.FFprobeBinary); err != nil {
		return stage.Health{Name: name, Ready: true, Detail: fmt.Sprintf("binary %q not found; durations fall back to narration length", r.cfg.FFprobeBinary)}
	}
	return stage.Healthy(name)
}

func writeCaptions(path string, cues []Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSRT(f, cues); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// escapeFilterPath quotes a path for use as a filtergraph option value.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(path)
}

func tail(output string, lines int) string {
	parts := strings.Split(strings.TrimSpace(output), "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, " | ")
}
