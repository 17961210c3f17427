package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bidwatch/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "app:\n  name: bidwatch\n"))
	require.NoError(t, err)

	assert.Equal(t, "bidwatch", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, config.BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "info", string(cfg.Logger.Level))
	assert.Equal(t, 20, cfg.Crawl.MaxArticles)
	assert.False(t, cfg.Schedule.Enabled)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: bidwatch
  environment: development
  debug: true
logger:
  level: debug
  encoding: console
server:
  address: ":9090"
storage:
  backend: postgres
  postgres:
    host: db.internal
    port: "5432"
    user: bids
    dbname: bids
    sslmode: require
source:
  index_url: https://procurement.example.cn/notices
  link_selector: ".notice-list a"
  content_selector: ".article-body"
  request_timeout: 45s
schedule:
  enabled: true
  interval_minutes: 30
  cron: "0 8 * * *"
  timezone: Asia/Shanghai
email:
  enabled: true
  smtp_host: smtp.example.com
  smtp_port: 465
  sender: bids@example.com
  password: secret
  recipients:
    - ops@example.com
crawl:
  max_articles: 50
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "debug", string(cfg.Logger.Level))
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, config.BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "db.internal", cfg.Storage.Postgres.Host)
	assert.Equal(t, "https://procurement.example.cn/notices", cfg.Source.IndexURL)
	assert.Equal(t, "45s", cfg.Source.RequestTimeout.String())
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, 30, cfg.Schedule.IntervalMinutes)
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Email.Recipients)
	assert.Equal(t, 50, cfg.Crawl.MaxArticles)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := map[string]string{
		"unknown backend": `
storage:
  backend: sqlite
`,
		"postgres without host": `
storage:
  backend: postgres
  postgres:
    host: ""
    dbname: ""
`,
		"schedule enabled without trigger": `
schedule:
  enabled: true
`,
		"email enabled incomplete": `
email:
  enabled: true
  smtp_host: smtp.example.com
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BIDWATCH_SERVER_ADDRESS", ":7070")

	cfg, err := config.Load(writeConfig(t, "server:\n  address: \":8080\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
