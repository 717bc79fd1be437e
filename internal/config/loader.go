package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. RELAY_SERVER_ADDR.
const EnvPrefix = "RELAY"

// secretEnv lists the keys that have no default and must be bound to
// environment variables explicitly. The unprefixed names are the ones the
// LINE and Gemini tooling documents.
var secretEnv = map[string][]string{
	"line.channel_secret":       {"RELAY_LINE_CHANNEL_SECRET", "LINE_CHANNEL_SECRET"},
	"line.channel_access_token": {"RELAY_LINE_CHANNEL_ACCESS_TOKEN", "LINE_CHANNEL_ACCESS_TOKEN"},
	"gemini.api_key":            {"RELAY_GEMINI_API_KEY", "GEMINI_API_KEY"},
	"server.admin_token":        {"RELAY_SERVER_ADMIN_TOKEN"},
}

// Load reads configuration from the YAML file at path, applies defaults and
// environment overrides, and validates the result. A missing file is not an
// error; required secrets can come from the environment alone.
func Load(path string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, envs := range secretEnv {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("%w: bind env for %s: %v", ErrConfiguration, key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"path", path,
		"gemini_model", cfg.Gemini.ModelName,
		"prompt_language", cfg.Prompts.Language,
		"artifacts_dir", cfg.Artifacts.Dir,
		"db_path", cfg.Database.Path,
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.callback_path", DefaultServerCallbackPath)
	v.SetDefault("server.max_body_bytes", DefaultServerMaxBodyBytes)
	v.SetDefault("server.event_timeout", DefaultServerEventTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("line.max_content_bytes", DefaultLineMaxContentBytes)
	v.SetDefault("line.request_timeout", DefaultLineRequestTimeout)

	v.SetDefault("gemini.model_name", DefaultGeminiModelName)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.max_output_tokens", DefaultGeminiMaxOutputTokens)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)

	v.SetDefault("prompts.language", DefaultPromptsLanguage)
	v.SetDefault("prompts.languages", DefaultLanguages)
	v.SetDefault("prompts.max_chars", DefaultPromptsMaxChars)
	v.SetDefault("prompts.story_instruction", DefaultStoryInstruction)
	v.SetDefault("prompts.story_prefix", DefaultStoryPrefix)
	v.SetDefault("prompts.story_suffix", DefaultStorySuffix)
	v.SetDefault("prompts.vision_instruction", DefaultVisionInstruction)
	v.SetDefault("prompts.vision_prompt", DefaultVisionPrompt)

	v.SetDefault("artifacts.dir", DefaultArtifactsDir)
	v.SetDefault("artifacts.extension", DefaultArtifactsExtension)
	v.SetDefault("artifacts.retain_last", true)
	v.SetDefault("artifacts.max_age", DefaultArtifactsMaxAge)

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.event_retention", DefaultDatabaseEventRetention)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("messages.unsupported", "")
}
