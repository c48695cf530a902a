package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"autotube/internal/jobs"
)

func TestJobsCommandPrintsJSONWhenNotATerminal(t *testing.T) {
	duration := 58.5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/run" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(jobListResponse{Jobs: []jobs.Summary{
			{ID: "job-2", Status: jobs.StatusRunning, Topic: "Second"},
			{ID: "job-1", Status: jobs.StatusSuccess, Topic: "First", DurationSec: &duration, PublishedURL: "https://youtu.be/abc"},
		}})
	}))
	defer srv.Close()

	out, _, err := runCLI(t, "jobs", "--server", srv.URL)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	var decoded jobListResponse
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("expected JSON output: %v\n%s", err, out)
	}
	if len(decoded.Jobs) != 2 || decoded.Jobs[0].ID != "job-2" {
		t.Fatalf("unexpected jobs %+v", decoded.Jobs)
	}
}

func TestJobsCommandReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := runCLI(t, "jobs", "--server", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestRenderJobsTable(t *testing.T) {
	duration := 61.25
	table := renderJobsTable([]jobs.Summary{
		{ID: "0123456789abcdef", Status: jobs.StatusSuccess, Topic: "AI news of the week", Tone: jobs.ToneInformative,
			Visibility: jobs.VisibilityUnlisted, CreatedAgo: "2 minutes ago", DurationSec: &duration, SkipReason: "publishing disabled"},
		{ID: "short", Status: jobs.StatusFailed, Topic: "Broken", FailedStage: "narration", Error: "synthesis quota exceeded"},
	})
	for _, want := range []string{"01234567", "AI news of the week", "61.2s", "skipped: publishing disabled", "narration: synthesis quota exceeded"} {
		requireContains(t, table, want)
	}
	if strings.Contains(table, "0123456789abcdef") {
		t.Fatalf("expected id to be shortened:\n%s", table)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
