package services_test

import (
	"context"
	"testing"

	"autotube/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-42")
	ctx = services.WithStage(ctx, "render")
	ctx = services.WithRequestID(ctx, "req-123")

	tests := []struct {
		name string
		get  func(context.Context) (string, bool)
		want string
	}{
		{"job id", services.JobIDFromContext, "job-42"},
		{"stage", services.StageFromContext, "render"},
		{"request id", services.RequestIDFromContext, "req-123"},
	}
	for _, tt := range tests {
		if got, ok := tt.get(ctx); !ok || got != tt.want {
			t.Fatalf("%s = %q (%v), want %q", tt.name, got, ok, tt.want)
		}
		if _, ok := tt.get(context.Background()); ok {
			t.Fatalf("%s found on empty context", tt.name)
		}
	}
}

func TestStageOverridesPerCall(t *testing.T) {
	job := services.WithJobID(context.Background(), "job-1")
	narration := services.WithStage(job, "narration")
	render := services.WithStage(narration, "render")

	if stage, _ := services.StageFromContext(narration); stage != "narration" {
		t.Fatalf("narration ctx stage = %q", stage)
	}
	if stage, _ := services.StageFromContext(render); stage != "render" {
		t.Fatalf("render ctx stage = %q", stage)
	}
	if id, _ := services.JobIDFromContext(render); id != "job-1" {
		t.Fatalf("job id lost across stages: %q", id)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	base := context.Background()
	if services.WithStage(base, "") != base || services.WithJobID(base, "") != base || services.WithRequestID(base, "") != base {
		t.Fatal("blank values should return the parent context")
	}
}
