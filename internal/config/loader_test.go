package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HUBSPOT_API_KEY", "HUBSPOT_SECRET", "PORT", EnvConfigPath} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr bool
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty file keeps defaults",
			yaml: "{}\n",
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":8000", cfg.Server.Listen)
				assert.Equal(t, DefaultSearchURL, cfg.HubSpot.SearchURL)
				assert.Equal(t, "guia", cfg.HubSpot.LookupProperty)
				assert.Equal(t, DefaultProperties, cfg.HubSpot.Properties)
				assert.Equal(t, "X-HubSpot-Signature", cfg.Webhook.SignatureHeader)
				assert.Equal(t, BackendJSONL, cfg.EventLog.Backend)
				assert.Equal(t, "webhook_log.json", cfg.EventLog.Path)
				assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)
			},
		},
		{
			name: "file values override defaults",
			yaml: `
service:
  log_level: debug
  log_format: text
server:
  listen: 127.0.0.1:9000
hubspot:
  timeout: 5s
  properties: [guia, estatus]
event_log:
  backend: sqlite
  path: ./data/events.db
metrics:
  enabled: false
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Service.LogLevel)
				assert.Equal(t, "text", cfg.Service.LogFormat)
				assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
				assert.Equal(t, 5*time.Second, cfg.HubSpot.Timeout)
				assert.Equal(t, []string{"guia", "estatus"}, cfg.HubSpot.Properties)
				assert.Equal(t, BackendSQLite, cfg.EventLog.Backend)
				assert.False(t, cfg.Metrics.Enabled)
			},
		},
		{
			name: "env interpolation",
			yaml: `
hubspot:
  api_key: ${TEST_HS_TOKEN}
webhook:
  secret: ${TEST_HS_SECRET}
`,
			env: map[string]string{"TEST_HS_TOKEN": "pat-123", "TEST_HS_SECRET": "s3cret"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "pat-123", cfg.HubSpot.APIKey)
				assert.Equal(t, "s3cret", cfg.Webhook.Secret)
			},
		},
		{
			name: "environment fallbacks",
			yaml: "{}\n",
			env:  map[string]string{"HUBSPOT_API_KEY": "pat-env", "HUBSPOT_SECRET": "env-secret", "PORT": "10000"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "pat-env", cfg.HubSpot.APIKey)
				assert.Equal(t, "env-secret", cfg.Webhook.Secret)
				assert.Equal(t, ":10000", cfg.Server.Listen)
			},
		},
		{
			name: "file wins over environment fallback",
			yaml: "server:\n  listen: 127.0.0.1:7000\n",
			env:  map[string]string{"PORT": "10000"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1:7000", cfg.Server.Listen)
			},
		},
		{
			name:    "unresolved secret placeholder",
			yaml:    "webhook:\n  secret: ${TEST_HS_MISSING}\n",
			wantErr: true,
		},
		{
			name:    "invalid log level",
			yaml:    "service:\n  log_level: verbose\n",
			wantErr: true,
		},
		{
			name:    "invalid backend",
			yaml:    "event_log:\n  backend: redis\n",
			wantErr: true,
		},
		{
			name:    "invalid body size",
			yaml:    "webhook:\n  max_body_size: lots\n",
			wantErr: true,
		},
		{
			name:    "metrics path without slash",
			yaml:    "metrics:\n  enabled: true\n  path: metrics\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := writeConfig(t, t.TempDir(), tt.yaml)
			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, cfg.SourcePath)
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUBSPOT_API_KEY", "pat-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.SourcePath)
	assert.Equal(t, "pat-env", cfg.HubSpot.APIKey)
	assert.Empty(t, cfg.Webhook.Secret)
}

func TestLoadDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "service:\n  name: relay-test\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "relay-test", cfg.Service.Name)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_DOTENV_TOKEN", "")
	os.Unsetenv("TEST_DOTENV_TOKEN")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_TOKEN=from-dotenv\n"), 0o600))
	path := writeConfig(t, dir, "hubspot:\n  api_key: ${TEST_DOTENV_TOKEN}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.HubSpot.APIKey)
}

func TestDiscoverConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "{}\n")

	t.Setenv(EnvConfigPath, path)
	got, err := DiscoverConfigPath()
	require.NoError(t, err)
	assert.Equal(t, path, got)

	t.Setenv(EnvConfigPath, filepath.Join(dir, "missing.yaml"))
	_, err = DiscoverConfigPath()
	assert.Error(t, err)
}

func TestMaxBodyBytes(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, int64(1024*1024), cfg.MaxBodyBytes())

	cfg.Webhook.MaxBodySize = "64KB"
	assert.Equal(t, int64(64*1024), cfg.MaxBodyBytes())
}
