package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateStore,
		c.validatePipeline,
		c.validateScript,
		c.validateNarration,
		c.validateRender,
		c.validatePublish,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path must be set when store.backend is sqlite")
		}
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want memory or sqlite)", c.Store.Backend)
	}
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.StageTimeoutSeconds < 0 {
		return errors.New("pipeline.stage_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateScript() error {
	switch c.Script.Provider {
	case ProviderLLM:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key is required when script.provider is llm. Set OPENROUTER_API_KEY or edit the config file")
		}
		if c.LLM.Model == "" {
			return errors.New("llm.model must be set")
		}
	case ProviderTemplate, ProviderAuto:
	default:
		return fmt.Errorf("script.provider: unsupported value %q (want auto, llm, or template)", c.Script.Provider)
	}
	if c.Script.WordsPerMinute < 60 || c.Script.WordsPerMinute > 300 {
		return errors.New("script.words_per_minute must be between 60 and 300")
	}
	if c.Script.DurationTolerance <= 0 || c.Script.DurationTolerance >= 1 {
		return errors.New("script.duration_tolerance must be between 0 and 1 (exclusive)")
	}
	if c.LLM.RetryAttempts < 1 {
		return errors.New("llm.retry_attempts must be >= 1")
	}
	return nil
}

func (c *Config) validateNarration() error {
	switch c.Narration.Provider {
	case ProviderTTS:
		if c.Narration.APIKey == "" {
			return errors.New("narration.api_key is required when narration.provider is tts. Set TTS_API_KEY or edit the config file")
		}
	case ProviderEstimate, ProviderAuto:
	default:
		return fmt.Errorf("narration.provider: unsupported value %q (want auto, tts, or estimate)", c.Narration.Provider)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New("render.width and render.height must be positive")
	}
	if c.Render.Width%2 != 0 || c.Render.Height%2 != 0 {
		return errors.New("render.width and render.height must be even")
	}
	if c.Render.FPS <= 0 {
		return errors.New("render.fps must be positive")
	}
	if c.Render.MinFreeMiB < 0 {
		return errors.New("render.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Provider {
	case ProviderYouTube, ProviderNone:
		return nil
	case ProviderMinIO:
		if c.MinIO.Endpoint == "" {
			return errors.New("minio.endpoint must be set when publish.provider is minio")
		}
		if strings.TrimSpace(c.MinIO.Bucket) == "" {
			return errors.New("minio.bucket must be set when publish.provider is minio")
		}
		return nil
	default:
		return fmt.Errorf("publish.provider: unsupported value %q (want youtube, minio, or none)", c.Publish.Provider)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
