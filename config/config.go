package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the newsletter system. It is built once at
// process start and passed by reference into each component constructor; nothing
// mutates it afterwards.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Newsletter NewsletterConfig `mapstructure:"newsletter"`
	Tones      map[string]Tone  `mapstructure:"tones"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Email      EmailConfig      `mapstructure:"email"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Preview    PreviewConfig    `mapstructure:"preview"`
	Server     ServerConfig     `mapstructure:"server"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// NewsletterConfig carries the editorial constraints for a single issue.
type NewsletterConfig struct {
	SectionsCount   int    `mapstructure:"sections_count"`
	TargetWordCount int    `mapstructure:"target_word_count"`
	MinWordCount    int    `mapstructure:"min_word_count"`
	MaxWordCount    int    `mapstructure:"max_word_count"`
	ReadingSpeed    int    `mapstructure:"reading_speed"`
	DefaultTone     string `mapstructure:"default_tone"`
}

// Tone is a named writing-style profile. Guidelines are injected into prompts;
// Structure selects the compressed consolidation template when set.
type Tone struct {
	Name       string `mapstructure:"name"`
	Guidelines string `mapstructure:"guidelines"`
	Structure  string `mapstructure:"structure"`
	Signoff    string `mapstructure:"signoff"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, anthropic, ollama
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "openai", "anthropic", "ollama":
	case "":
		return fmt.Errorf("llm.provider is required")
	default:
		return fmt.Errorf("unsupported llm.provider: %s", l.Provider)
	}
	if l.Provider != "ollama" && strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required for provider %s", l.Provider)
	}
	return nil
}

// SearchConfig contains web search settings. Provider "none" disables search
// entirely; the pipeline then relies on the model's own knowledge.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // brave, serper, none
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
	QueryDelay   time.Duration `mapstructure:"query_delay"`
}

// EmailConfig contains mail gateway and recipient settings.
type EmailConfig struct {
	From            string        `mapstructure:"from"`
	FromName        string        `mapstructure:"from_name"`
	TestMode        bool          `mapstructure:"test_mode"`
	TestRecipient   string        `mapstructure:"test_recipient"`
	Recipients      []string      `mapstructure:"recipients"`
	CompanyName     string        `mapstructure:"company_name"`
	CompanyAddress  string        `mapstructure:"company_address"`
	UnsubscribeBase string        `mapstructure:"unsubscribe_base"`
	SendDelay       time.Duration `mapstructure:"send_delay"`
	CredentialsPath string        `mapstructure:"credentials_path"`
	TokenPath       string        `mapstructure:"token_path"`
}

func (e EmailConfig) Validate() error {
	if strings.TrimSpace(e.From) == "" {
		return fmt.Errorf("email.from is required")
	}
	if e.TestMode && strings.TrimSpace(e.TestRecipient) == "" {
		return fmt.Errorf("email.test_recipient required when email.test_mode is set")
	}
	return nil
}

// StorageConfig contains draft, subscriber and lock storage settings.
type StorageConfig struct {
	DraftsDir string         `mapstructure:"drafts_dir"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
	Redis     RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings for the subscriber store.
// The subscriber store is optional: when neither URL nor host is set, delivery
// falls back to the static recipient list.
type PostgresConfig struct {
	URL     string        `mapstructure:"url"`
	Host    string        `mapstructure:"host"`
	Port    string        `mapstructure:"port"`
	User    string        `mapstructure:"user"`
	Pass    string        `mapstructure:"password"`
	DBName  string        `mapstructure:"dbname"`
	SSLMode string        `mapstructure:"sslmode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a subscriber store is configured at all.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN builds a connection string from the individual fields unless an explicit
// URL is provided.
func (p PostgresConfig) DSN() (string, error) {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Pass, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains Redis connection settings for optional scheduler locks.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Pass string `mapstructure:"password"`
	DB   int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// SchedulerConfig controls the approved-draft sweep.
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	CronPattern string `mapstructure:"cron_pattern"`
	Timezone    string `mapstructure:"timezone"`
}

// PreviewConfig controls the local preview/approval server.
type PreviewConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig contains public read API settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	SiteURL string `mapstructure:"site_url"`
}

// Load reads config.json (or the given path) plus NEWSROOM_* environment
// overrides into an immutable Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.default_timeout", 2*time.Minute)
	v.SetDefault("newsletter.sections_count", 3)
	v.SetDefault("newsletter.target_word_count", 450)
	v.SetDefault("newsletter.min_word_count", 400)
	v.SetDefault("newsletter.max_word_count", 450)
	v.SetDefault("newsletter.reading_speed", 200)
	v.SetDefault("newsletter.default_tone", "direct")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("search.provider", "none")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.query_delay", time.Second)
	v.SetDefault("email.send_delay", 100*time.Millisecond)
	v.SetDefault("email.credentials_path", "credentials.json")
	v.SetDefault("email.token_path", "token.json")
	v.SetDefault("storage.drafts_dir", "drafts")
	v.SetDefault("scheduler.cron_pattern", "0 2 * * 1")
	v.SetDefault("preview.port", 3001)
	v.SetDefault("preview.timeout", 10*time.Minute)
	v.SetDefault("server.address", ":8080")

	if path == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		exe, _ := os.Executable()
		v.AddConfigPath(filepath.Dir(exe))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("NEWSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file: defaults + env only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Tones == nil {
		cfg.Tones = DefaultTones()
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Email.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultTones returns the built-in writing-style profiles.
func DefaultTones() map[string]Tone {
	return map[string]Tone{
		"direct": {
			Name:       "Direct (punchy, ROI-focused)",
			Guidelines: "Direct, punchy, ROI-focused. Short sentences. Specific numbers. No fluff.",
			Structure:  "compressed",
			Signoff:    "Julio",
		},
		"thoughtful": {
			Name:       "Thoughtful (research-driven)",
			Guidelines: "Thoughtful, research-driven, curious. Longer-form reasoning backed by sources.",
		},
		"custom": {
			Name:       "Custom",
			Guidelines: "Clear, helpful and professional.",
		},
	}
}

// ToneOrDefault resolves a tone name, falling back to the custom profile.
func (c *Config) ToneOrDefault(name string) Tone {
	if t, ok := c.Tones[name]; ok {
		return t
	}
	return c.Tones["custom"]
}
