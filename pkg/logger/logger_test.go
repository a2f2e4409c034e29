package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	batch  []AggregatedLogEntry
	done   chan struct{}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batch = append(p.batch, payload.([]AggregatedLogEntry)...)
	select {
	case p.done <- struct{}{}:
	default:
	}
	return nil
}

func TestLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel)
	l.Info("computed",
		String("profile", "p1"),
		Int("episodes", 3),
		Float64("orb", 2.5),
		Bool("cached", false),
		Duration("duration_ms", 1500*time.Millisecond),
	)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "computed", out["message"])
	assert.Equal(t, "p1", out["profile"])
	assert.Equal(t, 3.0, out["episodes"])
	assert.Equal(t, 2.5, out["orb"])
	assert.Equal(t, 1500.0, out["duration_ms"])
}

func TestLogger_CollectorAggregatesErrors(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{}, 1)}
	l := NewNop()
	l.AddCollector(&CollectorConfig{
		Interval:  time.Hour,
		Threshold: 2,
		Topic:     "diagnostics",
		Publisher: pub,
	})
	defer l.RemoveCollector()

	boom := errors.New("boom")
	l.Error("lookup failed", String("body", "Lune"), Error(boom))
	l.Error("lookup failed", String("body", "Lune"), Error(boom))
	l.Error("lookup failed", String("body", "Mars"), Error(boom))

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not flush")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{"diagnostics"}, pub.topics)
	require.Len(t, pub.batch, 2)
	counts := map[string]int{}
	for _, e := range pub.batch {
		counts[e.Fields["body"].(string)] = e.Count
	}
	assert.Equal(t, map[string]int{"Lune": 2, "Mars": 1}, counts)
}

func TestLogger_CollectorFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{}, 1)}
	l := NewNop()
	l.AddCollector(&CollectorConfig{Interval: time.Hour, Threshold: 100, Topic: "diagnostics", Publisher: pub})

	l.Info("not collected")
	l.Debug("not collected either")
	l.Warn("sample failed", String("body", "Chiron"))
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batch, 1)
	assert.Equal(t, "warn", pub.batch[0].Level)
	assert.Equal(t, "sample failed", pub.batch[0].Message)
	assert.Contains(t, pub.batch[0].Caller, "logger_test.go")
}

func TestLogger_NilErrorOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, zerolog.InfoLevel).Info("ok", Error(nil))
	assert.NotContains(t, buf.String(), `"error"`)
}
