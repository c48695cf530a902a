package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"autotube/internal/config"
	"autotube/internal/events"
	"autotube/internal/render"
	"autotube/internal/services/llm"
)

const (
	llmCheckTimeout   = 30 * time.Second
	redisCheckTimeout = 5 * time.Second
)

// CheckLLM sends one tiny completion to confirm the script model answers
// with the configured key. No retries are attempted.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing; set OPENROUTER_API_KEY"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: llm.CompletionsURL(cfg.BaseURL),
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetry(1, 0, 0))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: describeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Model + " reachable"}
}

// CheckRedis pings the event forwarding target. Forwarding is best effort,
// so the result is always optional.
func CheckRedis(ctx context.Context, cfg config.Events) Result {
	result := Result{Name: "Redis events", Optional: true, Detail: cfg.RedisAddr}
	checkCtx, cancel := context.WithTimeout(ctx, redisCheckTimeout)
	defer cancel()

	client := events.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer client.Close()
	if err := client.Ping(checkCtx).Err(); err != nil {
		result.Detail = fmt.Sprintf("%s unreachable (%v); job events stay in-process", cfg.RedisAddr, err)
		return result
	}
	result.Passed = true
	return result
}

// CheckDirectoryAccess verifies that path is a directory the process can
// list, create files in and read back from.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(reason string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", path, reason)}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: " + err.Error())
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: " + err.Error())
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckFreeSpace compares the space available under path with what a render
// needs. A zero minimum disables the check.
func CheckFreeSpace(name, path string, minMiB int64) Result {
	if minMiB <= 0 {
		return Result{Name: name, Passed: true, Optional: true, Detail: "check disabled"}
	}
	free, err := render.FreeMiB(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%d MiB free", free)
	if free < minMiB {
		return Result{Name: name, Detail: fmt.Sprintf("%s, renders need %d MiB", detail, minMiB)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func describeLLMError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "no answer within " + llmCheckTimeout.String()
	case errors.As(err, &netErr) && netErr.Timeout():
		return "API unreachable (network timeout)"
	}
	return err.Error()
}
