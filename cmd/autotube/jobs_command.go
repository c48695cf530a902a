package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"autotube/internal/jobs"
)

type jobListResponse struct {
	Jobs []jobs.Summary `json:"jobs"`
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var server string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs known to a running gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := strings.TrimSpace(server)
			if base == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				base = "http://" + cfg.Paths.APIBind
			}
			reqCtx := cmd.Context()
			if reqCtx == nil {
				reqCtx = context.Background()
			}
			list, err := fetchJobs(reqCtx, http.DefaultClient, base)
			if err != nil {
				return err
			}
			if asJSON || !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd.OutOrStdout(), jobListResponse{Jobs: list})
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs yet")
				return nil
			}
			fmt.Fprintln(out, renderJobsTable(list))
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Gateway base URL (defaults to http://<paths.api_bind>)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	return cmd
}

func fetchJobs(ctx context.Context, client *http.Client, base string) ([]jobs.Summary, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	url := strings.TrimRight(base, "/") + "/api/run"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact gateway at %s: %w; start it with `autotube serve`", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var payload jobListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode job list: %w", err)
	}
	return payload.Jobs, nil
}

var jobColumns = []column{
	{title: "ID"},
	{title: "Status"},
	{title: "Topic"},
	{title: "Tone"},
	{title: "Visibility"},
	{title: "Created"},
	{title: "Duration", alignRight: true},
	{title: "Outcome"},
}

func renderJobsTable(list []jobs.Summary) string {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		duration := "-"
		if s.DurationSec != nil {
			duration = fmt.Sprintf("%.1fs", *s.DurationSec)
		}
		rows = append(rows, []string{
			shortID(s.ID),
			statusCell(s.Status),
			truncate(s.Topic, 40),
			string(s.Tone),
			string(s.Visibility),
			s.CreatedAgo,
			duration,
			outcomeColumn(s),
		})
	}
	return renderTable(jobColumns, rows)
}

func outcomeColumn(s jobs.Summary) string {
	switch {
	case s.PublishedURL != "":
		return s.PublishedURL
	case s.Error != "" && s.FailedStage != "":
		return truncate(s.FailedStage+": "+s.Error, 60)
	case s.Error != "":
		return truncate(s.Error, 60)
	case s.SkipReason != "":
		return "skipped: " + truncate(s.SkipReason, 50)
	default:
		return ""
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
