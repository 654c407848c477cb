package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "opsengine", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(10000), cfg.Risk.AutoApproveLimit)
	assert.Equal(t, int64(50000), cfg.Risk.MinCashBalance)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 3, cfg.Dispatch.Workers)
	assert.Equal(t, "OpsEngine AI", cfg.Replies.ApprovalSignature)
	assert.Equal(t, "Pliant Security", cfg.Replies.SecuritySignature)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8181"
  shutdown_timeout: 5s
logger:
  level: debug
  format: text
risk:
  auto_approve_limit: 20000
  min_cash_balance: 75000
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  topic: triage-decisions
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Logger.SlogLevel())
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, int64(20000), cfg.Risk.AutoApproveLimit)
	assert.Equal(t, int64(75000), cfg.Risk.MinCashBalance)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "triage-decisions", cfg.Kafka.Topic)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "risk:\n  auto_approve_limit: 20000\n")
	t.Setenv("OPSENGINE_RISK_AUTO_APPROVE_LIMIT", "5000")
	t.Setenv("OPSENGINE_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), cfg.Risk.AutoApproveLimit)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative min balance", "risk:\n  min_cash_balance: -1\n"},
		{"auto limit above slider range", "risk:\n  auto_approve_limit: 60000\n"},
		{"bad log format", "logger:\n  format: xml\n"},
		{"zero workers", "dispatch:\n  workers: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestLoggerConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LoggerConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LoggerConfig{Level: "ERROR"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LoggerConfig{Level: "verbose"}.SlogLevel())
}
