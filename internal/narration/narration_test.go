package narration

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"autotube/internal/jobs"
	"autotube/internal/services"
	"autotube/internal/stage"
)

func testScript() stage.Script {
	return stage.Script{
		Title: "T",
		Text:  "one two three four five",
		Beats: []stage.Beat{{Text: "one two three", DurationSec: 1.5}, {Text: "four five", DurationSec: 1}},
	}
}

func TestEstimateWritesSilentWAV(t *testing.T) {
	dir := t.TempDir()
	track, err := NewEstimateSynthesizer(150).Synthesize(context.Background(), stage.NarrationRequest{
		JobID: "job", WorkDir: dir, Script: testScript(), Tone: jobs.ToneInformative,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if track.DurationSec != 2.5 {
		t.Fatalf("duration = %v", track.DurationSec)
	}
	raw, err := os.ReadFile(track.AudioPath)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" || string(raw[36:40]) != "data" {
		t.Fatalf("bad header % x", raw[:44])
	}
	dataSize := binary.LittleEndian.Uint32(raw[40:44])
	if want := uint32(2.5 * 16000 * 2); dataSize != want {
		t.Fatalf("data size = %d, want %d", dataSize, want)
	}
	if len(raw) != 44+int(dataSize) {
		t.Fatalf("file size = %d", len(raw))
	}
}

func TestEstimateFallsBackToWordRate(t *testing.T) {
	script := stage.Script{Text: strings.Repeat("word ", 150)}
	track, err := NewEstimateSynthesizer(150).Synthesize(context.Background(), stage.NarrationRequest{WorkDir: t.TempDir(), Script: script})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if track.DurationSec != 60 {
		t.Fatalf("duration = %v", track.DurationSec)
	}
}

func newTTS(t *testing.T, handler http.HandlerFunc) *TTSSynthesizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tts := NewTTSSynthesizer(TTSConfig{
		BaseURL: server.URL + "/v1/",
		APIKey:  "key",
		Model:   "tts-1",
		Voices:  map[string]string{"informative": "alloy", "playful": "nova"},
	}, nil)
	tts.probe = func(context.Context, string, string) (float64, error) { return 2.4, nil }
	return tts
}

func TestTTSSynthesize(t *testing.T) {
	var got speechRequest
	tts := newTTS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ID3fake-mp3"))
	})
	dir := t.TempDir()
	track, err := tts.Synthesize(context.Background(), stage.NarrationRequest{WorkDir: dir, Script: testScript(), Tone: jobs.TonePlayful})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.Voice != "nova" || got.Model != "tts-1" || got.ResponseFormat != "mp3" || got.Input != "one two three four five" {
		t.Fatalf("request = %+v", got)
	}
	if track.DurationSec != 2.4 || track.Voice != "nova" {
		t.Fatalf("track = %+v", track)
	}
	if data, _ := os.ReadFile(track.AudioPath); string(data) != "ID3fake-mp3" {
		t.Fatalf("audio = %q", data)
	}
}

func TestTTSProbeFailureEstimates(t *testing.T) {
	tts := newTTS(t, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("audio")) })
	tts.cfg.WordsPerMinute = 150
	tts.probe = func(context.Context, string, string) (float64, error) { return 0, errors.New("ffprobe missing") }

	track, err := tts.Synthesize(context.Background(), stage.NarrationRequest{WorkDir: t.TempDir(), Script: testScript(), Tone: jobs.ToneInformative})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if track.DurationSec != 2 {
		t.Fatalf("duration = %v, want word-rate estimate 2", track.DurationSec)
	}
}

func TestTTSErrors(t *testing.T) {
	tests := []struct {
		name    string
		tone    jobs.Tone
		status  int
		body    string
		marker  error
		message string
	}{
		{"unmapped tone", jobs.ToneDramatic, 0, "", services.ErrConfiguration, "unsupported voice/tone mapping"},
		{"quota", jobs.ToneInformative, http.StatusTooManyRequests, `{"error":{"message":"limit reached"}}`, services.ErrExternalTool, "synthesis quota exceeded"},
		{"auth", jobs.ToneInformative, http.StatusUnauthorized, "bad key", services.ErrConfiguration, "http 401"},
		{"server", jobs.ToneInformative, http.StatusBadGateway, "upstream", services.ErrExternalTool, "http 502: upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tts := newTTS(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := tts.Synthesize(context.Background(), stage.NarrationRequest{WorkDir: t.TempDir(), Script: testScript(), Tone: tt.tone})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("error = %v, want %v", err, tt.marker)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("error %q missing %q", err, tt.message)
			}
		})
	}
}

func TestTTSHealth(t *testing.T) {
	if h := NewTTSSynthesizer(TTSConfig{}, nil).HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy without key")
	}
	tts := NewTTSSynthesizer(TTSConfig{APIKey: "k", Voices: map[string]string{"informative": "alloy"}}, nil)
	if h := tts.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected ready, got %+v", h)
	}
}
