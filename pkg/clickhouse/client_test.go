package clickhouse

import (
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Options(t *testing.T) {
	cfg := Config{
		Host:               "ch",
		Database:           "astrozee",
		User:               "default",
		Password:           "pw",
		MaxExecutionTime:   30 * time.Second,
		AsyncInsert:        true,
		WaitForAsyncInsert: true,
	}
	cfg.setDefaults()
	o := cfg.options()

	assert.Equal(t, clickhouse.Native, o.Protocol)
	assert.Equal(t, []string{"ch:9000"}, o.Addr)
	assert.Equal(t, "astrozee", o.Auth.Database)
	assert.Equal(t, "pw", o.Auth.Password)
	assert.Equal(t, 30, o.Settings["max_execution_time"])
	assert.Equal(t, 1, o.Settings["async_insert"])
	assert.Equal(t, 1, o.Settings["wait_for_async_insert"])
	assert.Equal(t, 5*time.Second, o.DialTimeout)
}

func TestConfig_HTTPDefaults(t *testing.T) {
	cfg := Config{Host: "ch", HTTP: true}
	cfg.setDefaults()
	o := cfg.options()

	assert.Equal(t, clickhouse.HTTP, o.Protocol)
	assert.Equal(t, []string{"ch:8123"}, o.Addr)
	assert.Equal(t, "default", o.Auth.Database)
	require.Empty(t, o.Settings)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorContains(t, err, "host is required")
}
