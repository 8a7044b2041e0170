package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/api/v1", cfg.Server.BasePath)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 100, cfg.LLM.ContextProjects)
}

func TestLoadMergesFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: gemini\n  api_key: from-file\nlog:\n  level: debug\n"), 0o644))

	v := viper.New()
	v.Set("llm.model", "gemini-2.5-pro")
	v.Set("server.cors_origins", []string{"https://a.example, https://b.example"})

	cfg, err := Load(path, v)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	// untouched defaults survive
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"gemini without key":   func(c *Config) { c.LLM.Provider = "gemini" },
		"vertex without proj":  func(c *Config) { c.LLM.Provider = "vertex" },
		"unknown provider":     func(c *Config) { c.LLM.Provider = "openai" },
		"relative base path":   func(c *Config) { c.Server.BasePath = "api" },
		"dev login w/o secret": func(c *Config) { c.Identity.DevLogin = true },
		"context too large":    func(c *Config) { c.LLM.ContextProjects = 500 },
		"unknown log level":    func(c *Config) { c.Log.Level = "trace" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BRADBOARD_TEST_A=file\nBRADBOARD_TEST_B=file\n"), 0o644))
	t.Setenv("BRADBOARD_TEST_A", "process")
	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { os.Unsetenv("BRADBOARD_TEST_B") })
	assert.Equal(t, "process", os.Getenv("BRADBOARD_TEST_A"))
	assert.Equal(t, "file", os.Getenv("BRADBOARD_TEST_B"))
}
