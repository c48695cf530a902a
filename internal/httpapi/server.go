package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/pipeline"
	"autotube/internal/stage"
)

// HealthFunc reports the readiness of each stage adapter.
type HealthFunc func(ctx context.Context) []stage.Health

// Options configures the router.
type Options struct {
	Logger *slog.Logger
	Health HealthFunc
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Now     func() time.Time
}

type handler struct {
	service *pipeline.Service
	store   jobs.Store
	health  HealthFunc
	logger  *slog.Logger
	now     func() time.Time
}

// NewRouter builds the gin engine serving the gateway routes.
func NewRouter(service *pipeline.Service, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger := logging.NewComponentLogger(opts.Logger, "api")
	h := &handler{
		service: service,
		store:   service.Store(),
		health:  opts.Health,
		logger:  logger,
		now:     opts.Now,
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestContext(), accessLog(logger))
	api := r.Group("/api")
	api.POST("/run", h.run)
	api.GET("/run", h.list)
	api.GET("/jobs/:id", h.get)
	r.GET("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return r
}

type runResponse struct {
	JobID  string        `json:"jobId"`
	Status jobs.Status   `json:"status,omitempty"`
	Result *jobs.Summary `json:"result,omitempty"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Issues  []jobs.FieldIssue `json:"issues,omitempty"`
	JobID   string            `json:"jobId,omitempty"`
}

func (h *handler) run(c *gin.Context) {
	var raw jobs.RawInput
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid payload", Details: err.Error()})
		return
	}
	input, err := jobs.NormalizeInput(raw)
	if err != nil {
		resp := errorResponse{Error: "Invalid payload", Details: err.Error()}
		var verr *jobs.ValidationError
		if errors.As(err, &verr) {
			resp.Issues = verr.Issues
		}
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	if isTruthy(c.Query("async")) {
		job, err := h.service.SubmitAsync(c.Request.Context(), input)
		if err != nil {
			h.serviceError(c, err, "")
			return
		}
		c.JSON(http.StatusAccepted, runResponse{JobID: job.ID, Status: job.Status})
		return
	}

	job, err := h.service.Submit(c.Request.Context(), input)
	if err != nil {
		h.serviceError(c, err, job.ID)
		return
	}
	if job.Status == jobs.StatusFailed {
		message := "Unknown error"
		if job.Failure != nil && job.Failure.Message != "" {
			message = job.Failure.Message
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: message, JobID: job.ID})
		return
	}
	summary := jobs.Summarize(job, h.now())
	c.JSON(http.StatusOK, runResponse{JobID: job.ID, Result: &summary})
}

func (h *handler) serviceError(c *gin.Context, err error, jobID string) {
	status := http.StatusInternalServerError
	if errors.Is(err, pipeline.ErrShuttingDown) {
		status = http.StatusServiceUnavailable
	}
	logging.WithContext(c.Request.Context(), h.logger).Error("run request failed", logging.Error(err))
	c.JSON(status, errorResponse{Error: err.Error(), JobID: jobID})
}

func (h *handler) list(c *gin.Context) {
	all, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs.SummarizeAll(jobs.NewestFirst(all), h.now())})
}

func (h *handler) get(c *gin.Context) {
	job, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, jobs.Summarize(job, h.now()))
}

func (h *handler) healthz(c *gin.Context) {
	var checks []stage.Health
	if h.health != nil {
		checks = h.health(c.Request.Context())
	}
	status, code := "ok", http.StatusOK
	for _, check := range checks {
		if !check.Ready {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, gin.H{"status": status, "stages": checks})
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
