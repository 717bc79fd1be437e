package config

import "time"

// Config holds the configuration for every component of the relay.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Line      LineConfig      `mapstructure:"line"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig controls the inbound HTTP endpoint.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	CallbackPath    string        `mapstructure:"callback_path"    validate:"required,startswith=/"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   validate:"min=1024"`
	EventTimeout    time.Duration `mapstructure:"event_timeout"    validate:"min=1s,max=10m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=5m"`
	// AdminToken protects the event log route. Empty disables the route.
	AdminToken string `mapstructure:"admin_token"`
}

// LineConfig holds the LINE Messaging API credentials and limits.
type LineConfig struct {
	ChannelSecret      string        `mapstructure:"channel_secret"       validate:"required"`
	ChannelAccessToken string        `mapstructure:"channel_access_token" validate:"required"`
	MaxContentBytes    int64         `mapstructure:"max_content_bytes"    validate:"min=1"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"      validate:"min=1s,max=5m"`
}

// GeminiConfig holds the model provider settings.
type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"           validate:"required"`
	ModelName       string        `mapstructure:"model_name"        validate:"required"`
	Temperature     float32       `mapstructure:"temperature"       validate:"min=0,max=2"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens" validate:"min=1"`
	Timeout         time.Duration `mapstructure:"timeout"           validate:"min=1s,max=10m"`
	MaxRetries      int           `mapstructure:"max_retries"       validate:"min=0,max=1"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       validate:"min=0,max=1m"`
}

// PromptsConfig holds the prompt templates and the target-language selector.
// Templates use text/template syntax with the fields .Language and .MaxChars.
type PromptsConfig struct {
	Language          string            `mapstructure:"language"           validate:"required"`
	Languages         map[string]string `mapstructure:"languages"          validate:"required,min=1"`
	MaxChars          int               `mapstructure:"max_chars"          validate:"min=1,max=5000"`
	StoryInstruction  string            `mapstructure:"story_instruction"  validate:"required"`
	StoryPrefix       string            `mapstructure:"story_prefix"`
	StorySuffix       string            `mapstructure:"story_suffix"       validate:"required"`
	VisionInstruction string            `mapstructure:"vision_instruction" validate:"required"`
	VisionPrompt      string            `mapstructure:"vision_prompt"      validate:"required"`
}

// ArtifactsConfig controls the image staging directory.
type ArtifactsConfig struct {
	Dir        string        `mapstructure:"dir"         validate:"required"`
	Extension  string        `mapstructure:"extension"   validate:"required,alphanum"`
	RetainLast bool          `mapstructure:"retain_last"`
	MaxAge     time.Duration `mapstructure:"max_age"     validate:"min=1m"`
}

// DatabaseConfig controls the event log database.
type DatabaseConfig struct {
	Path           string        `mapstructure:"path"            validate:"required"`
	EventRetention time.Duration `mapstructure:"event_retention" validate:"min=1h"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds user-facing reply texts.
type MessagesConfig struct {
	// Unsupported is sent for message kinds the relay does not handle.
	// Empty means such events are dropped without a reply.
	Unsupported string `mapstructure:"unsupported"`
}
