package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// StubBinary writes an executable shell script named name into dir and
// returns its path. body runs under /bin/sh.
func StubBinary(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// PrependPath puts dir first on PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// FakeMediaTools writes an ffmpeg stub that records its arguments to
// ffmpeg.args next to itself and writes a placeholder to its last argument,
// and an ffprobe stub that reports durationSec for a 1080x1920 stream.
func FakeMediaTools(t testing.TB, dir, durationSec string) (ffmpeg, ffprobe string) {
	t.Helper()
	ffmpeg = StubBinary(t, dir, "ffmpeg", `for last; do :; done
printf '%s\n' "$@" > "$(dirname "$0")/ffmpeg.args"
printf 'fake-mp4' > "$last"`)
	ffprobe = StubBinary(t, dir, "ffprobe",
		`echo '{"streams":[{"index":0,"codec_type":"video","width":1080,"height":1920}],"format":{"duration":"`+durationSec+`"}}'`)
	return ffmpeg, ffprobe
}
