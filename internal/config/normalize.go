package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeNarration()
	c.normalizeRender()
	c.normalizePublish()
	c.normalizeNotifications()
	c.normalizeEvents()
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = defaultSQLitePath
	}
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = firstNonEmpty(c.LLM.APIKey, os.Getenv("OPENROUTER_API_KEY"), os.Getenv("OPENAI_API_KEY"))
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	c.Script.Provider = strings.ToLower(strings.TrimSpace(c.Script.Provider))
	if c.Script.Provider == "" || c.Script.Provider == ProviderAuto {
		c.Script.Provider = ProviderTemplate
		if c.LLM.APIKey != "" {
			c.Script.Provider = ProviderLLM
		}
	}
}

func (c *Config) normalizeNarration() {
	c.Narration.APIKey = firstNonEmpty(c.Narration.APIKey, os.Getenv("TTS_API_KEY"), os.Getenv("OPENAI_API_KEY"))
	c.Narration.BaseURL = strings.TrimRight(strings.TrimSpace(c.Narration.BaseURL), "/")
	if c.Narration.BaseURL == "" {
		c.Narration.BaseURL = defaultTTSBaseURL
	}
	voices := make(map[string]string, len(c.Narration.Voices))
	for tone, voice := range c.Narration.Voices {
		voices[strings.ToLower(strings.TrimSpace(tone))] = strings.TrimSpace(voice)
	}
	c.Narration.Voices = voices

	c.Narration.Provider = strings.ToLower(strings.TrimSpace(c.Narration.Provider))
	if c.Narration.Provider == "" || c.Narration.Provider == ProviderAuto {
		c.Narration.Provider = ProviderEstimate
		if c.Narration.APIKey != "" {
			c.Narration.Provider = ProviderTTS
		}
	}
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = "ffmpeg"
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = "ffprobe"
	}
}

func (c *Config) normalizePublish() {
	c.Publish.Provider = strings.ToLower(strings.TrimSpace(c.Publish.Provider))
	if c.Publish.Provider == "" {
		c.Publish.Provider = ProviderYouTube
	}
	c.YouTube.ClientID = firstNonEmpty(c.YouTube.ClientID, os.Getenv("YOUTUBE_CLIENT_ID"))
	c.YouTube.ClientSecret = firstNonEmpty(c.YouTube.ClientSecret, os.Getenv("YOUTUBE_CLIENT_SECRET"))
	c.YouTube.RefreshToken = firstNonEmpty(c.YouTube.RefreshToken, os.Getenv("YOUTUBE_REFRESH_TOKEN"))
	if strings.TrimSpace(c.YouTube.TokenURL) == "" {
		c.YouTube.TokenURL = defaultTokenURL
	}
	if strings.TrimSpace(c.YouTube.UploadURL) == "" {
		c.YouTube.UploadURL = defaultUploadURL
	}

	c.MinIO.Endpoint = strings.TrimSpace(c.MinIO.Endpoint)
	c.MinIO.AccessKey = firstNonEmpty(c.MinIO.AccessKey, os.Getenv("MINIO_ACCESS_KEY"))
	c.MinIO.SecretKey = firstNonEmpty(c.MinIO.SecretKey, os.Getenv("MINIO_SECRET_KEY"))
	c.MinIO.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.MinIO.PublicBaseURL), "/")
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = firstNonEmpty(c.Notifications.NtfyTopic, os.Getenv("NTFY_TOPIC"))
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeEvents() {
	c.Events.RedisAddr = strings.TrimSpace(c.Events.RedisAddr)
	c.Events.RedisChannel = strings.TrimSpace(c.Events.RedisChannel)
	if c.Events.RedisChannel == "" {
		c.Events.RedisChannel = defaultRedisChannel
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
