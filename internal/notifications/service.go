package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autotube/internal/config"
	"autotube/internal/jobs"
)

const (
	userAgent       = "autotube/0.1"
	defaultNtfyBase = "https://ntfy.sh/"
)

// Service defines the notification surface.
type Service interface {
	NotifyJobSucceeded(ctx context.Context, event jobs.Event) error
	NotifyJobFailed(ctx context.Context, event jobs.Event) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: resolveEndpoint(topic),
		client:   &http.Client{Timeout: timeout},
		success:  cfg.Notifications.Success,
		failure:  cfg.Notifications.Failure,
	}
}

// resolveEndpoint accepts either a full URL or a bare ntfy.sh topic name.
func resolveEndpoint(topic string) string {
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return defaultNtfyBase + strings.TrimPrefix(topic, "/")
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	success  bool
	failure  bool
}

func (n *ntfyService) NotifyJobSucceeded(ctx context.Context, event jobs.Event) error {
	if !n.success {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Video ready: %s", displayTopic(event))
	data := payload{
		title: "autotube - Job Complete",
		tags:  []string{"autotube", "job", "success"},
	}
	if event.Result != nil {
		if event.Result.Published() {
			fmt.Fprintf(&b, "\nPublished: %s", event.Result.PublishedURL)
			data.click = event.Result.PublishedURL
		} else {
			fmt.Fprintf(&b, "\nStored locally: %s", event.Result.VideoPath)
			if reason := strings.TrimSpace(event.Result.PublishSkipReason); reason != "" {
				fmt.Fprintf(&b, "\nPublish skipped: %s", reason)
			}
		}
	}
	data.message = b.String()
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, event jobs.Event) error {
	if !n.failure {
		return nil
	}
	label := "Job failed"
	if stage := strings.TrimSpace(event.Stage); stage != "" {
		label = fmt.Sprintf("Job failed at %s", stage)
	}
	message := strings.TrimSpace(event.Message)
	if message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "autotube - Error",
		message:  fmt.Sprintf("%s: %s\n%s", label, displayTopic(event), message),
		tags:     []string{"autotube", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "autotube - Test",
		message:  "Notification system test",
		tags:     []string{"autotube", "test"},
		priority: "low",
	})
}

func displayTopic(event jobs.Event) string {
	if topic := strings.TrimSpace(event.Topic); topic != "" {
		return topic
	}
	return event.JobID
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if data.click != "" {
		req.Header.Set("Click", data.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobSucceeded(context.Context, jobs.Event) error { return nil }
func (noopService) NotifyJobFailed(context.Context, jobs.Event) error    { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
