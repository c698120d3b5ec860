package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the formpilot CLI. Values are loaded
// from an optional YAML file, environment variables, and command-line flags
// via viper; SetDefaults establishes the baseline for every key.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Matcher MatcherConfig `mapstructure:"matcher" yaml:"matcher"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the chromedp session.
type BrowserConfig struct {
	Headless            bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent           string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout   time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StabilizationQuiet  time.Duration `mapstructure:"stabilization_quiet" yaml:"stabilization_quiet"`
	StabilizationBudget time.Duration `mapstructure:"stabilization_budget" yaml:"stabilization_budget"`
	NoSandbox           bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
}

// EngineConfig controls plan execution.
type EngineConfig struct {
	StepTimeout         time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	SubmitDelay         time.Duration `mapstructure:"submit_delay" yaml:"submit_delay"`
	DropdownOpenTimeout time.Duration `mapstructure:"dropdown_open_timeout" yaml:"dropdown_open_timeout"`
	MaxPlanRounds       int           `mapstructure:"max_plan_rounds" yaml:"max_plan_rounds"`
	UploadFixture       string        `mapstructure:"upload_fixture" yaml:"upload_fixture"`
	TraceDir            string        `mapstructure:"trace_dir" yaml:"trace_dir"`
}

// MatcherConfig holds the fuzzy-matching thresholds.
type MatcherConfig struct {
	MinScore       float64 `mapstructure:"min_score" yaml:"min_score"`
	LowConfidence  float64 `mapstructure:"low_confidence" yaml:"low_confidence"`
	OtherThreshold float64 `mapstructure:"other_threshold" yaml:"other_threshold"`
}

// LLMConfig configures the plan-generation and option-selection services.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKeyEnv   string        `mapstructure:"api_key_env" yaml:"api_key_env"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// APIKey resolves the configured API key from the environment.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// SetDefaults registers the baseline value for every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.stabilization_quiet", 500*time.Millisecond)
	v.SetDefault("browser.stabilization_budget", 10*time.Second)
	v.SetDefault("browser.no_sandbox", false)

	v.SetDefault("engine.step_timeout", 30*time.Second)
	v.SetDefault("engine.submit_delay", 5*time.Second)
	v.SetDefault("engine.dropdown_open_timeout", 1*time.Second)
	v.SetDefault("engine.max_plan_rounds", 4)
	v.SetDefault("engine.upload_fixture", "")
	v.SetDefault("engine.trace_dir", "")

	v.SetDefault("matcher.min_score", 0.5)
	v.SetDefault("matcher.low_confidence", 0.6)
	v.SetDefault("matcher.other_threshold", 0.7)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 3)
}

// NewConfigFromViper unmarshals and validates the full configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field invariants that viper cannot express.
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	if c.Engine.MaxPlanRounds < 1 {
		return fmt.Errorf("engine.max_plan_rounds must be >= 1, got %d", c.Engine.MaxPlanRounds)
	}
	if c.Engine.StepTimeout <= 0 {
		return fmt.Errorf("engine.step_timeout must be positive")
	}
	if c.Engine.DropdownOpenTimeout <= 0 {
		return fmt.Errorf("engine.dropdown_open_timeout must be positive")
	}
	if c.Matcher.MinScore < 0 || c.Matcher.MinScore > 1 {
		return fmt.Errorf("matcher.min_score must be in [0,1], got %v", c.Matcher.MinScore)
	}
	if c.Matcher.OtherThreshold < c.Matcher.MinScore {
		return fmt.Errorf("matcher.other_threshold must be >= matcher.min_score")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0, got %d", c.LLM.MaxRetries)
	}
	return nil
}
