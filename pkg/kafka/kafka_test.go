package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

// memReader serves queued messages, then blocks until the context ends.
type memReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *memReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *memReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

type funcHandler struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h funcHandler) Topic() string { return h.topic }
func (h funcHandler) Handle(ctx context.Context, b []byte) error { return h.fn(ctx, b) }

func testConsumer(t *testing.T, cfg ConsumerConfig, opts ...Option) (*Consumer, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg.Brokers = []string{"localhost:9092"}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = time.Millisecond
		cfg.BackoffMax = 2 * time.Millisecond
	}
	c, err := NewConsumer(cfg, append(opts, WithRegisterer(reg))...)
	require.NoError(t, err)
	return c, reg
}

func msgOn(topic string, partition int, offset int64, value string) kafka.Message {
	return kafka.Message{Topic: topic, Partition: partition, Offset: offset, Value: []byte(value)}
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	c, _ := testConsumer(t, ConsumerConfig{RetryMax: 3})
	calls := 0
	h := funcHandler{"requests", func(context.Context, []byte) error {
		calls++
		if calls < 3 {
			return errors.New("ephemeris busy")
		}
		return nil
	}}
	r := &memReader{}

	c.process(context.Background(), r, h, msgOn("requests", 0, 7, "{}"))

	assert.Equal(t, 3, calls)
	require.Len(t, r.commits(), 1)
	assert.Equal(t, int64(7), r.commits()[0].Offset)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.m.handled.WithLabelValues("requests", "retried_ok")))
}

func TestConsumer_PermanentGoesToDLQ(t *testing.T) {
	c, _ := testConsumer(t, ConsumerConfig{RetryMax: 5, DLQTopic: "requests-dlq"})
	dlq := &memWriter{}
	c.dlq = dlq
	calls := 0
	h := funcHandler{"requests", func(context.Context, []byte) error {
		calls++
		return Permanent(errors.New("bad payload"))
	}}
	r := &memReader{}

	msg := msgOn("requests", 2, 11, "not json")
	msg.Headers = []kafka.Header{{Key: HeaderRequestID, Value: []byte("req-1")}}
	c.process(context.Background(), r, h, msg)

	assert.Equal(t, 1, calls)
	require.Len(t, dlq.msgs, 1)
	dead := dlq.msgs[0]
	assert.Equal(t, "not json", string(dead.Value))
	assert.Equal(t, "req-1", Header(dead, HeaderRequestID))
	assert.Equal(t, "requests", Header(dead, "source_topic"))
	assert.Equal(t, "2", Header(dead, "source_partition"))
	assert.Equal(t, "11", Header(dead, "source_offset"))
	assert.Equal(t, "bad payload", Header(dead, "error"))
	assert.Len(t, r.commits(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.m.handled.WithLabelValues("requests", "dlq")))
}

func TestConsumer_PanicIsPermanent(t *testing.T) {
	c, _ := testConsumer(t, ConsumerConfig{RetryMax: 3})
	calls := 0
	h := funcHandler{"requests", func(context.Context, []byte) error {
		calls++
		panic("boom")
	}}
	r := &memReader{}

	c.process(context.Background(), r, h, msgOn("requests", 0, 1, "x"))
	assert.Equal(t, 1, calls)
	assert.Len(t, r.commits(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.m.handled.WithLabelValues("requests", "dropped")))
}

func TestConsumer_CancelledMessageNotCommitted(t *testing.T) {
	c, _ := testConsumer(t, ConsumerConfig{RetryMax: 3})
	ctx, cancel := context.WithCancel(context.Background())
	h := funcHandler{"requests", func(ctx context.Context, _ []byte) error {
		cancel()
		return ctx.Err()
	}}
	r := &memReader{}

	c.process(ctx, r, h, msgOn("requests", 0, 1, "x"))
	assert.Empty(t, r.commits())
}

func TestConsumer_HooksWrapHandling(t *testing.T) {
	var afterErr error
	hook := Hooks{
		RequestIDHook(),
		HookFuncs{AfterFunc: func(_ context.Context, _ kafka.Message, err error) { afterErr = err }},
	}
	c, _ := testConsumer(t, ConsumerConfig{}, WithHook(hook))

	var seen string
	h := funcHandler{"requests", func(ctx context.Context, _ []byte) error {
		seen = RequestIDFromContext(ctx)
		return Permanent(errors.New("nope"))
	}}
	msg := msgOn("requests", 0, 1, "x")
	msg.Headers = []kafka.Header{{Key: HeaderRequestID, Value: []byte("req-9")}}
	c.process(context.Background(), &memReader{}, h, msg)

	assert.Equal(t, "req-9", seen)
	assert.EqualError(t, afterErr, "nope")
}

func TestConsumer_StartStopKeepsPartitionOrder(t *testing.T) {
	c, _ := testConsumer(t, ConsumerConfig{Workers: 3})
	r := &memReader{}
	for off := int64(0); off < 5; off++ {
		for p := 0; p < 3; p++ {
			r.queue = append(r.queue, msgOn("requests", p, off, "x"))
		}
	}
	c.newReader = func(string) reader { return r }

	var (
		mu   sync.Mutex
		seen = map[int][]int64{}
		n    int
		all  = make(chan struct{})
	)
	c.RegisterHandler(funcHandler{"requests", func(context.Context, []byte) error { return nil }})
	c.o.hook = HookFuncs{BeforeFunc: func(ctx context.Context, m kafka.Message) (context.Context, error) {
		mu.Lock()
		defer mu.Unlock()
		seen[m.Partition] = append(seen[m.Partition], m.Offset)
		if n++; n == 15 {
			close(all)
		}
		return ctx, nil
	}}

	require.NoError(t, c.Start())
	assert.Error(t, c.Start())
	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatal("messages not handled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.True(t, r.closed)

	for p := 0; p < 3; p++ {
		assert.Equal(t, []int64{0, 1, 2, 3, 4}, seen[p], "partition %d", p)
	}
	assert.Len(t, r.commits(), 15)
}

func TestConsumer_StartWithoutHandler(t *testing.T) {
	c, _ := testConsumer(t, ConsumerConfig{})
	assert.Error(t, c.Start())
}

func TestHooks_PanicBecomesError(t *testing.T) {
	boom := HookFuncs{BeforeFunc: func(context.Context, kafka.Message) (context.Context, error) {
		panic("boom")
	}}
	_, err := Hooks{boom}.Before(context.Background(), kafka.Message{})
	assert.ErrorIs(t, err, ErrHookPanic)
}

func TestHooks_AfterRunsInReverse(t *testing.T) {
	var order []string
	mk := func(name string) Hook {
		return HookFuncs{AfterFunc: func(context.Context, kafka.Message, error) { order = append(order, name) }}
	}
	Hooks{mk("a"), nil, mk("b")}.After(context.Background(), kafka.Message{}, nil)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad payload")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}

func TestProducer_PublishBatch(t *testing.T) {
	w := &memWriter{}
	p := &Producer{w: w, m: newClientMetrics(prometheus.NewRegistry())}

	err := p.PublishBatch(context.Background(), "reports", []Message{
		{Key: []byte("p1"), Value: map[string]int{"n": 1}, Headers: map[string]string{"report_id": "r1"}},
		{Value: "raw"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "reports", w.msgs[0].Topic)
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "r1", Header(w.msgs[0], "report_id"))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.m.published.WithLabelValues("reports", "ok")))

	w.err = errors.New("leader not available")
	assert.ErrorContains(t, p.PublishMessage(context.Background(), "diagnostics", []string{"x"}), "leader not available")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.m.published.WithLabelValues("diagnostics", "error")))
}

func TestNewProducer_Validates(t *testing.T) {
	_, err := NewProducer(ProducerConfig{})
	assert.Error(t, err)
	_, err = NewProducer(ProducerConfig{Brokers: []string{"b:9092"}, Compression: "brotli"}, WithRegisterer(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoff(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}
