package config

const (
	defaultConfigPath    = "~/.config/autotube/config.toml"
	defaultWorkDir       = "~/.local/share/autotube/work"
	defaultLogDir        = "~/.local/share/autotube/logs"
	defaultSQLitePath    = "~/.local/share/autotube/jobs.db"
	defaultAPIBind       = "127.0.0.1:3000"
	defaultLLMBaseURL    = "https://openrouter.ai/api/v1"
	defaultLLMModel      = "openai/gpt-4o-mini"
	defaultTTSBaseURL    = "https://api.openai.com/v1"
	defaultTTSModel      = "tts-1"
	defaultTokenURL      = "https://oauth2.googleapis.com/token"
	defaultUploadURL     = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultRedisChannel  = "autotube:jobs"
	defaultMinIOBucket   = "autotube"
	defaultYouTubeCatID  = "28"
	defaultWordsPerMin   = 150
	defaultTolerance     = 0.25
	defaultNtfyTimeout   = 10
	defaultLLMTimeout    = 60
	defaultTTSTimeout    = 120
	defaultUploadTimeout = 600
)

// Provider names accepted by the provider knobs.
const (
	ProviderAuto     = "auto"
	ProviderLLM      = "llm"
	ProviderTemplate = "template"
	ProviderTTS      = "tts"
	ProviderEstimate = "estimate"
	ProviderYouTube  = "youtube"
	ProviderMinIO    = "minio"
	ProviderNone     = "none"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			Backend:    BackendMemory,
			SQLitePath: defaultSQLitePath,
		},
		Script: Script{
			Provider:          ProviderAuto,
			WordsPerMinute:    defaultWordsPerMin,
			DurationTolerance: defaultTolerance,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        "https://github.com/autotube/autotube",
			Title:          "autotube",
			Temperature:    0.7,
			TimeoutSeconds: defaultLLMTimeout,
			RetryAttempts:  3,
		},
		Narration: Narration{
			Provider: ProviderAuto,
			BaseURL:  defaultTTSBaseURL,
			Model:    defaultTTSModel,
			Voices: map[string]string{
				"informative": "alloy",
				"playful":     "nova",
				"dramatic":    "onyx",
			},
			TimeoutSeconds: defaultTTSTimeout,
		},
		Render: Render{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Width:         1080,
			Height:        1920,
			FPS:           30,
			FontSize:      18,
			Backgrounds: map[string]string{
				"informative": "0x1e3a5f",
				"playful":     "0xff7f50",
				"dramatic":    "0x111111",
			},
			MinFreeMiB: 512,
		},
		Publish: Publish{Provider: ProviderYouTube},
		YouTube: YouTube{
			TokenURL:       defaultTokenURL,
			UploadURL:      defaultUploadURL,
			CategoryID:     defaultYouTubeCatID,
			TimeoutSeconds: defaultUploadTimeout,
		},
		MinIO: MinIO{
			Bucket: defaultMinIOBucket,
			UseSSL: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Success:        true,
			Failure:        true,
		},
		Events:  Events{RedisChannel: defaultRedisChannel},
		Metrics: Metrics{Enabled: true},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
