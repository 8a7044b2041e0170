package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ProjectName = "BradBoard API"
	Version     = "1.0.0"
	ServiceName = "bradboard-api"
	FileName    = "bradboard.yml"
)

// Config models bradboard.yml.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Database struct {
		Workspace string `yaml:"workspace"`
	} `yaml:"database"`
	Identity struct {
		URL       string `yaml:"url"`
		AnonKey   string `yaml:"anon_key"`
		JWTSecret string `yaml:"jwt_secret"`
		DevLogin  bool   `yaml:"dev_login"`
	} `yaml:"identity"`
	LLM struct {
		Provider        string `yaml:"provider"`
		APIKey          string `yaml:"api_key"`
		Model           string `yaml:"model"`
		Project         string `yaml:"project"`
		Location        string `yaml:"location"`
		ContextProjects int    `yaml:"context_projects"`
	} `yaml:"llm"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config.server.addr is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /: %q", c.Server.BasePath)
	}
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return errors.New("config.llm.api_key is required for provider gemini")
		}
	case "vertex":
		if c.LLM.Project == "" || c.LLM.Location == "" {
			return errors.New("config.llm.project and config.llm.location are required for provider vertex")
		}
	case "mock":
	default:
		return fmt.Errorf("config.llm.provider must be gemini, vertex or mock, got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("config.llm.model is required")
	}
	if c.LLM.ContextProjects < 1 || c.LLM.ContextProjects > 100 {
		return errors.New("config.llm.context_projects must be between 1 and 100")
	}
	if c.Identity.DevLogin && c.Identity.JWTSecret == "" {
		return errors.New("config.identity.jwt_secret is required when dev_login is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses config from raw YAML bytes on top of the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	return cfg, nil
}

// LoadOptional reads the workspace config file, or returns defaults when it
// does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the config file at path and overlays any keys set in v
// (bound flags or BRADBOARD_* environment variables), then validates.
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, err
	}
	if v != nil {
		Overlay(cfg, v)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay copies keys explicitly set in v onto cfg. Keys use the dotted
// yaml paths, e.g. "llm.api_key".
func Overlay(cfg *Config, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("server.addr", &cfg.Server.Addr)
	str("server.base_path", &cfg.Server.BasePath)
	if v.IsSet("server.cors_origins") {
		cfg.Server.CORSOrigins = splitList(v.GetStringSlice("server.cors_origins"))
	}
	str("database.workspace", &cfg.Database.Workspace)
	str("identity.url", &cfg.Identity.URL)
	str("identity.anon_key", &cfg.Identity.AnonKey)
	str("identity.jwt_secret", &cfg.Identity.JWTSecret)
	if v.IsSet("identity.dev_login") {
		cfg.Identity.DevLogin = v.GetBool("identity.dev_login")
	}
	str("llm.provider", &cfg.LLM.Provider)
	str("llm.api_key", &cfg.LLM.APIKey)
	str("llm.model", &cfg.LLM.Model)
	str("llm.project", &cfg.LLM.Project)
	str("llm.location", &cfg.LLM.Location)
	if v.IsSet("llm.context_projects") {
		cfg.LLM.ContextProjects = v.GetInt("llm.context_projects")
	}
	str("log.level", &cfg.Log.Level)
	if v.IsSet("log.development") {
		cfg.Log.Development = v.GetBool("log.development")
	}
}

// splitList flattens comma-separated entries, since env vars arrive as one string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8000
  base_path: /api/v1
  cors_origins:
    - http://localhost:3000
    - http://localhost:5173

database:
  workspace: .

identity:
  url: ""
  anon_key: ""
  jwt_secret: ""
  dev_login: false

llm:
  provider: mock
  api_key: ""
  model: gemini-2.0-flash
  project: ""
  location: us-central1
  context_projects: 100

log:
  level: info
  development: false
`
