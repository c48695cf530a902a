package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTeeHandlerCollapses(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner, nil); h != inner {
		t.Fatal("expected lone handler to be returned unwrapped")
	}
	if h := TeeHandler(nil); h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected a discarding handler when nothing is given")
	}
}

func TestTeeHandlerConsoleAndJobFile(t *testing.T) {
	var console, file bytes.Buffer
	h := TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With(FieldJobID, "j1")
	logger.Debug("beat timing", slog.Int("beats", 6))
	logger.Warn("publish skipped")

	if strings.Contains(console.String(), "beat timing") || !strings.Contains(console.String(), "publish skipped") {
		t.Fatalf("console got wrong records: %q", console.String())
	}
	if !strings.Contains(file.String(), "beat timing") || !strings.Contains(file.String(), "job_id=j1") {
		t.Fatalf("file missing records: %q", file.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when any member is")
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerReportsMemberErrors(t *testing.T) {
	var ok bytes.Buffer
	h := TeeHandler(
		failingHandler{slog.NewTextHandler(&ok, nil)},
		slog.NewTextHandler(&ok, nil),
	)
	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "job completed", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected member error, got %v", err)
	}
	if !strings.Contains(ok.String(), "job completed") {
		t.Fatalf("healthy member skipped: %q", ok.String())
	}
}
