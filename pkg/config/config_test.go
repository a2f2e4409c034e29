package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 1, c.Engine.MaxGapDays)
	assert.Equal(t, 3, c.Engine.BufferMonths)
	assert.Equal(t, 12, c.Engine.SampleHourUTC)
	assert.Equal(t, "approximate", c.Ephemeris.Engine)
	assert.True(t, c.Ephemeris.Fallback)
	assert.Equal(t, 10*time.Minute, c.Cache.TTL)
	assert.Equal(t, "transit-reports", c.Kafka.Topics.Reports)
	assert.False(t, c.Kafka.Enabled)
}

func TestParse_OverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
engine:
  buffer_months: 1
  orbs:
    square: 4
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`))
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 1, c.Engine.BufferMonths)
	assert.Equal(t, 1, c.Engine.MaxGapDays)
	assert.Equal(t, 4.0, c.Engine.Orbs["square"])
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestParse_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"environment":      "environment: moon",
		"sample hour":      "engine:\n  sample_hour_utc: 24",
		"engine":           "ephemeris:\n  engine: swiss",
		"clickhouse oracle": "ephemeris:\n  engine: clickhouse",
		"kafka brokers":    "kafka:\n  enabled: true\n  brokers: []",
		"orb":              "engine:\n  orbs:\n    square: 45",
		"consumer":         "kafka:\n  consumer:\n    enabled: true",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"ASTROZEE_PORT":            "9090",
		"ASTROZEE_KAFKA_BROKERS":   "a:9092,b:9092",
		"ASTROZEE_CLICKHOUSE_HOST": "ch",
	}
	err := c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.ClickHouse.Enabled)
	assert.Equal(t, "ch", c.ClickHouse.Host)

	bad := Default()
	assert.Error(t, bad.ApplyEnv(func(k string) (string, bool) {
		if k == "ASTROZEE_PORT" {
			return "eighty", true
		}
		return "", false
	}))
}

func TestLoad_SampleFile(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("sample config not found")
	}
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "console", c.Logging.Format)
	assert.Equal(t, "transit-requests-dlq", c.Kafka.Consumer.DLQTopic)
}
