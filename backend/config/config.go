package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Protocol selects the wire format used to talk to the model backend.
type Protocol string

const (
	ProtocolOpenAI    Protocol = "openai"
	ProtocolAnthropic Protocol = "anthropic"
)

// Config carries every knob the agent core consumes by name.
type Config struct {
	Provider    string   `mapstructure:"provider"`
	Protocol    Protocol `mapstructure:"protocol"`
	Model       string   `mapstructure:"model"`
	Temperature float64  `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`

	ChatTimeout    time.Duration `mapstructure:"chat_timeout"`
	MaxIterations  int           `mapstructure:"max_iterations"`
	MaxDuration    time.Duration `mapstructure:"max_duration"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	AutoVerify     bool     `mapstructure:"auto_verify"`
	VerifyCommands []string `mapstructure:"verify_commands"`
	MaxFixAttempts int      `mapstructure:"max_fix_attempts"`
	Planning       bool     `mapstructure:"planning"`
	DryRun         bool     `mapstructure:"dry_run"`

	StateDir string `mapstructure:"state_dir"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("provider", "anthropic")
	v.SetDefault("protocol", string(ProtocolAnthropic))
	v.SetDefault("model", "claude-3-5-sonnet-20241022")
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_tokens", 8192)
	v.SetDefault("chat_timeout", 120*time.Second)
	v.SetDefault("max_iterations", 25)
	v.SetDefault("max_duration", 10*time.Minute)
	v.SetDefault("command_timeout", 60*time.Second)
	v.SetDefault("auto_verify", false)
	v.SetDefault("max_fix_attempts", 3)
	v.SetDefault("planning", true)
	v.SetDefault("dry_run", false)
}

// Load reads configuration from conjure.yaml in the given directory,
// overlays CONJURE_* environment variables, and fills defaults. A .env
// file next to the config is loaded first when present.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	defaults(v)
	v.SetConfigName("conjure")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("CONJURE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Join(dir, ".conjure")
	}

	return &cfg, nil
}
