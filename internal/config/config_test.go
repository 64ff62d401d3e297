package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NOTIFY_TIME_ZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "maintenance-sla", cfg.App.Name)
	assert.Equal(t, 5*time.Minute, cfg.SLA.ScanInterval)
	assert.Equal(t, 15*time.Minute, cfg.SLA.WarningWindow)
	assert.Equal(t, 1, cfg.SLA.Workers)
	assert.Equal(t, time.Minute, cfg.SLA.NotifyTimeout)
	assert.Equal(t, 500, cfg.SLA.BatchSize)
	assert.Equal(t, JobStoreMemory, cfg.SLA.JobStore)
	assert.True(t, cfg.SLA.RunOnStart)
	assert.Equal(t, 587, cfg.Notification.SMTPPort)
	assert.Equal(t, "http://localhost:3000", cfg.Notification.FrontendURL)
	assert.Equal(t, time.UTC, cfg.Notification.Location())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NOTIFY_TIME_ZONE", "UTC")
	t.Setenv("SLA_SCAN_INTERVAL", "1m")
	t.Setenv("SLA_WARNING_WINDOW", "30m")
	t.Setenv("SLA_JOB_STORE", "Redis")
	t.Setenv("SLA_BATCH_SIZE", "50")
	t.Setenv("SLA_NOTIFY_TIMEOUT", "20s")
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://chat.example.com/hook")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.SLA.ScanInterval)
	assert.Equal(t, 30*time.Minute, cfg.SLA.WarningWindow)
	assert.Equal(t, JobStoreRedis, cfg.SLA.JobStore)
	assert.Equal(t, 50, cfg.SLA.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.SLA.NotifyTimeout)
	assert.Equal(t, "smtp.example.com", cfg.Notification.SMTPHost)
	assert.Equal(t, "https://chat.example.com/hook", cfg.Notification.WebhookURL)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":   {"SLA_SCAN_INTERVAL", "often"},
		"zero window":    {"SLA_WARNING_WINDOW", "0s"},
		"unknown store":  {"SLA_JOB_STORE", "etcd"},
		"unknown zone":   {"NOTIFY_TIME_ZONE", "Mars/Olympus"},
		"bad redis db":   {"REDIS_DB", "one"},
		"no workers":     {"SLA_WORKERS", "0"},
		"negative queue": {"SLA_QUEUE_SIZE", "-1"},
		"negative batch": {"SLA_BATCH_SIZE", "-5"},
		"zero notify":    {"SLA_NOTIFY_TIMEOUT", "0s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("NOTIFY_TIME_ZONE", "UTC")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}
