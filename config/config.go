package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentgrid/relay/dialogue"
)

// Model providers the process can be wired with.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Defaults applied by Default and therefore by Load for absent fields.
const (
	DefaultAppName   = "test_agent_app"
	DefaultUserID    = "user_1"
	DefaultAuthor    = "user"
	DefaultRecordDir = "data"
)

// Config is the full process configuration.
type Config struct {
	App      App           `yaml:"app"`
	Model    Model         `yaml:"model"`
	Log      Log           `yaml:"log"`
	Record   Record        `yaml:"record"`
	Dialogue Dialogue      `yaml:"dialogue"`
	Jobs     Jobs          `yaml:"jobs"`
	Agents   []RemoteAgent `yaml:"agents,omitempty"`
}

// App identifies the application and the acting user. The author seeds
// new session state so audit records carry attribution.
type App struct {
	Name   string `yaml:"name"`
	UserID string `yaml:"user_id"`
	Author string `yaml:"author,omitempty"`
}

// Model selects and parameterizes the language model adapter. An empty
// APIKey defers to the provider SDK's environment handling
// (ANTHROPIC_API_KEY, OPENAI_API_KEY).
type Model struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`

	// MaxCalls bounds model invocations per run. Zero keeps the
	// runner default.
	MaxCalls int `yaml:"max_calls,omitempty"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // json or text
}

// Record gates the run-directory file recorder.
type Record struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

// Dialogue locates the audit database. An empty path falls back to
// dialogue.DefaultDatabasePath.
type Dialogue struct {
	Path string `yaml:"path,omitempty"`
}

// Jobs points at a long-running generation job service. An empty
// BaseURL means no job client is wired.
type Jobs struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`

	// PollIntervalSeconds is the fixed delay between status polls.
	// Zero keeps the client default.
	PollIntervalSeconds int `yaml:"poll_interval_seconds,omitempty"`

	// MaxPolls bounds how long a job is awaited. Zero waits
	// indefinitely.
	MaxPolls int `yaml:"max_polls,omitempty"`
}

// RemoteAgent names an agent endpoint to register at startup. Name is
// optional; when empty it is resolved from the agent card.
type RemoteAgent struct {
	Name string `yaml:"name,omitempty"`
	URL  string `yaml:"url"`
}

// Default returns the configuration used when a field is absent from
// the loaded file. The model name has no default and must be set.
func Default() Config {
	return Config{
		App:      App{Name: DefaultAppName, UserID: DefaultUserID, Author: DefaultAuthor},
		Model:    Model{Provider: ProviderAnthropic},
		Log:      Log{Level: "info", Format: "json"},
		Record:   Record{Dir: DefaultRecordDir},
		Dialogue: Dialogue{Path: dialogue.DefaultDatabasePath},
	}
}

// Load reads the YAML file at path, layers it over Default and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the complete configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Record.Validate(); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := c.Jobs.Validate(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	for i, agent := range c.Agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the application identity.
func (a *App) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if a.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

// Validate checks the model selection.
func (m *Model) Validate() error {
	switch m.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", m.Provider)
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.MaxCalls < 0 {
		return fmt.Errorf("max_calls must be non-negative")
	}
	return nil
}

// Validate checks the logging settings.
func (l *Log) Validate() error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch l.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}

// Validate checks the recorder settings.
func (r *Record) Validate() error {
	if r.Enabled && r.Dir == "" {
		return fmt.Errorf("dir is required when recording is enabled")
	}
	return nil
}

// Validate checks the job service settings.
func (j *Jobs) Validate() error {
	if j.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval_seconds must be non-negative")
	}
	if j.MaxPolls < 0 {
		return fmt.Errorf("max_polls must be non-negative")
	}
	return nil
}

// Validate checks a remote agent entry.
func (a *RemoteAgent) Validate() error {
	if a.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// PollInterval converts the configured seconds to a duration. Zero
// stays zero so the job client default applies.
func (j *Jobs) PollInterval() time.Duration {
	return time.Duration(j.PollIntervalSeconds) * time.Second
}
