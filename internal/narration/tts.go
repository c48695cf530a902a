package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/media/ffprobe"
	"autotube/internal/script"
	"autotube/internal/services"
	"autotube/internal/stage"
)

// SpeechFileName is the synthesized track written into the job directory.
const SpeechFileName = "narration.mp3"

// TTSConfig configures an OpenAI-compatible speech endpoint.
type TTSConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Voices         map[string]string
	Timeout        time.Duration
	FFprobeBinary  string
	WordsPerMinute int
}

// TTSSynthesizer posts script text to an /audio/speech endpoint.
type TTSSynthesizer struct {
	cfg        TTSConfig
	httpClient *http.Client
	probe      func(ctx context.Context, binary, path string) (float64, error)
	logger     *slog.Logger
}

// NewTTSSynthesizer builds a synthesizer; logger may be nil.
func NewTTSSynthesizer(cfg TTSConfig, logger *slog.Logger) *TTSSynthesizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &TTSSynthesizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		probe:      ffprobe.Duration,
		logger:     logging.NewComponentLogger(logger, "narration"),
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// VoiceFor resolves the configured voice for tone.
func (s *TTSSynthesizer) VoiceFor(tone jobs.Tone) (string, error) {
	voice := strings.TrimSpace(s.cfg.Voices[string(tone)])
	if voice == "" {
		return "", services.Wrap(services.ErrConfiguration, string(stage.NameNarration), "",
			fmt.Sprintf("unsupported voice/tone mapping: %q", tone), nil)
	}
	return voice, nil
}

// Synthesize implements stage.NarrationSynthesizer.
func (s *TTSSynthesizer) Synthesize(ctx context.Context, req stage.NarrationRequest) (stage.NarrationTrack, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return stage.NarrationTrack{}, services.Wrap(services.ErrConfiguration, string(stage.NameNarration), "", "speech api key not configured", nil)
	}
	voice, err := s.VoiceFor(req.Tone)
	if err != nil {
		return stage.NarrationTrack{}, err
	}
	text := strings.TrimSpace(req.Script.Text)
	if text == "" {
		text = req.Script.JoinBeats()
	}

	body, err := json.Marshal(speechRequest{Model: s.cfg.Model, Voice: voice, Input: text, ResponseFormat: "mp3"})
	if err != nil {
		return stage.NarrationTrack{}, fmt.Errorf("encode speech request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return stage.NarrationTrack{}, fmt.Errorf("build speech request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return stage.NarrationTrack{}, services.Wrap(services.ErrExternalTool, string(stage.NameNarration), "synthesize", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return stage.NarrationTrack{}, statusError(resp)
	}

	path := filepath.Join(req.WorkDir, SpeechFileName)
	if err := writeStream(path, resp.Body); err != nil {
		return stage.NarrationTrack{}, services.Wrap(services.ErrExternalTool, string(stage.NameNarration), "save audio", "", err)
	}

	duration, err := s.probe(ctx, s.cfg.FFprobeBinary, path)
	if err != nil {
		duration = script.SpeakingSeconds(text, s.cfg.WordsPerMinute)
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "narration duration estimated", "duration_probe_failed",
			logging.Error(err),
			logging.Float64("estimated_seconds", duration),
			logging.String(logging.FieldErrorHint, "install ffprobe for exact narration length"),
			logging.String(logging.FieldImpact, "captions may drift from the voice track"),
		)
	}
	return stage.NarrationTrack{AudioPath: path, DurationSec: duration, Voice: voice}, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(raw))
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &decoded) == nil && decoded.Error.Message != "" {
		detail = decoded.Error.Message
	}
	message := fmt.Sprintf("http %d: %s", resp.StatusCode, detail)
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		message = "synthesis quota exceeded: " + message
	case http.StatusUnauthorized, http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, string(stage.NameNarration), "synthesize", message, nil)
	}
	return services.Wrap(services.ErrExternalTool, string(stage.NameNarration), "synthesize", message, nil)
}

func writeStream(path string, r io.Reader) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return closeErr
	}
	if n == 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("speech endpoint returned no audio")
	}
	return os.Rename(tmp, path)
}

// HealthCheck implements stage.HealthChecker without spending quota.
func (s *TTSSynthesizer) HealthCheck(context.Context) stage.Health {
	name := string(stage.NameNarration)
	switch {
	case strings.TrimSpace(s.cfg.APIKey) == "":
		return stage.Unhealthy(name, "speech api key not configured")
	case len(s.cfg.Voices) == 0:
		return stage.Unhealthy(name, "no voices configured")
	}
	return stage.Healthy(name)
}
