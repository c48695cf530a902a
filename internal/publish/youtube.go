package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/services"
	"autotube/internal/stage"
)

// WatchURLPrefix forms the public URL of an uploaded video.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// YouTubeConfig holds refresh-token credentials and upload defaults.
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
	UploadURL    string
	CategoryID   string
	Tags         []string
	Timeout      time.Duration
}

// Configured reports whether all three credentials are present.
func (c YouTubeConfig) Configured() bool {
	return strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != "" &&
		strings.TrimSpace(c.RefreshToken) != ""
}

// YouTube uploads through the Data API resumable upload protocol.
type YouTube struct {
	cfg        YouTubeConfig
	baseClient *http.Client
	logger     *slog.Logger
}

// NewYouTube builds the publisher. It never fails: missing credentials are
// reported per upload so rendering still succeeds.
func NewYouTube(cfg YouTubeConfig, logger *slog.Logger) *YouTube {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &YouTube{
		cfg:        cfg,
		baseClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewComponentLogger(logger, "youtube"),
	}
}

type videoResource struct {
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags,omitempty"`
		CategoryID  string   `json:"categoryId,omitempty"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus           string `json:"privacyStatus"`
		SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
	} `json:"status"`
}

// Publish implements stage.Publisher.
func (y *YouTube) Publish(ctx context.Context, req stage.PublishRequest) (stage.PublishResult, error) {
	if !y.cfg.Configured() {
		return stage.PublishResult{}, services.Wrap(services.ErrNoCredentials, "youtube", "",
			"set youtube client_id, client_secret and refresh_token to upload", nil)
	}
	file, err := os.Open(req.Video.Path)
	if err != nil {
		return stage.PublishResult{}, services.Wrap(services.ErrValidation, string(stage.NamePublish), "open video", "", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return stage.PublishResult{}, fmt.Errorf("stat video: %w", err)
	}

	client := y.authorizedClient(ctx)
	session, err := y.startSession(ctx, client, req, info.Size())
	if err != nil {
		return stage.PublishResult{}, err
	}
	videoID, err := y.upload(ctx, client, session, file, info.Size())
	if err != nil {
		return stage.PublishResult{}, err
	}
	logging.WithContext(ctx, y.logger).Info("video uploaded",
		logging.String("video_id", videoID),
		logging.String("visibility", string(req.Visibility)),
	)
	return stage.PublishResult{URL: WatchURLPrefix + videoID}, nil
}

func (y *YouTube) authorizedClient(ctx context.Context) *http.Client {
	conf := &oauth2.Config{
		ClientID:     y.cfg.ClientID,
		ClientSecret: y.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: y.cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, y.baseClient)
	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: y.cfg.RefreshToken})
	client := oauth2.NewClient(ctx, source)
	client.Timeout = y.cfg.Timeout
	return client
}

func (y *YouTube) startSession(ctx context.Context, client *http.Client, req stage.PublishRequest, size int64) (string, error) {
	var resource videoResource
	resource.Snippet.Title = VideoTitle(req.Title, req.Topic)
	resource.Snippet.Description = VideoDescription(req.Description)
	resource.Snippet.Tags = y.cfg.Tags
	resource.Snippet.CategoryID = y.cfg.CategoryID
	resource.Status.PrivacyStatus = privacyStatus(req.Visibility)
	body, err := json.Marshal(resource)
	if err != nil {
		return "", fmt.Errorf("encode video resource: %w", err)
	}

	endpoint, err := url.Parse(y.cfg.UploadURL)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "youtube", "", "invalid upload_url", err)
	}
	query := endpoint.Query()
	query.Set("uploadType", "resumable")
	query.Set("part", "snippet,status")
	endpoint.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	httpReq.Header.Set("X-Upload-Content-Type", "video/mp4")
	httpReq.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", classifyTransport("start upload", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", classifyStatus("start upload", resp)
	}
	location := strings.TrimSpace(resp.Header.Get("Location"))
	if location == "" {
		return "", services.Wrap(services.ErrExternalTool, "youtube", "start upload", "no upload session returned", nil)
	}
	return location, nil
}

func (y *YouTube) upload(ctx context.Context, client *http.Client, session string, body io.Reader, size int64) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, session, body)
	if err != nil {
		return "", err
	}
	httpReq.ContentLength = size
	httpReq.Header.Set("Content-Type", "video/mp4")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", classifyTransport("upload", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", classifyStatus("upload", resp)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || strings.TrimSpace(created.ID) == "" {
		return "", services.Wrap(services.ErrExternalTool, "youtube", "upload", "response did not include a video id", err)
	}
	return created.ID, nil
}

func privacyStatus(v jobs.Visibility) string {
	if parsed, ok := jobs.ParseVisibility(string(v)); ok {
		return string(parsed)
	}
	return string(jobs.DefaultVisibility)
}

// classifyStatus marks 4xx responses, other than timeouts and throttling, as
// platform rejections.
func classifyStatus(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
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
	if isRejection(resp.StatusCode) {
		return services.Wrap(services.ErrRejected, "youtube", operation, message, nil)
	}
	return services.Wrap(services.ErrExternalTool, "youtube", operation, message, nil)
}

func classifyTransport(operation string, err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		status := 0
		if retrieve.Response != nil {
			status = retrieve.Response.StatusCode
		}
		if isRejection(status) {
			return services.Wrap(services.ErrRejected, "youtube", "refresh token", "credentials rejected", err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrExternalTool, "youtube", operation, "", err)
}

func isRejection(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

// HealthCheck implements stage.HealthChecker.
func (y *YouTube) HealthCheck(context.Context) stage.Health {
	if !y.cfg.Configured() {
		return stage.Health{Name: string(stage.NamePublish), Ready: true, Detail: "no credentials; uploads will be skipped"}
	}
	return stage.Healthy(string(stage.NamePublish))
}
