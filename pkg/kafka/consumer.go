package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

// MessageHandler handles the messages of one topic. Returning an error
// wrapped with Permanent skips the remaining retries.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads registered topics within a consumer group. Each topic is
// split into Workers shards by partition so that a partition's messages are
// handled one at a time, in order, and committed after handling.
type Consumer struct {
	cfg       ConsumerConfig
	o         options
	m         *clientMetrics
	handlers  map[string]MessageHandler
	newReader func(topic string) reader
	dlq       writer

	mu      sync.Mutex
	state   int
	cancel  context.CancelFunc
	readers []reader
	wg      sync.WaitGroup
}

const (
	idle = iota
	running
	stopped
)

func NewConsumer(cfg ConsumerConfig, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: brokers are required")
	}
	cfg.setDefaults()
	o := buildOptions(opts)

	c := &Consumer{
		cfg:      cfg,
		o:        o,
		m:        metricsFor(o.reg),
		handlers: make(map[string]MessageHandler),
	}
	start := kafka.FirstOffset
	if cfg.StartLatest {
		start = kafka.LastOffset
	}
	c.newReader = func(topic string) reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       topic,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			StartOffset: start,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}
	return c, nil
}

// RegisterHandler must be called before Start. A second handler for the same
// topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, dup := c.handlers[h.Topic()]; dup {
		c.logWarn("kafka consumer: handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// Start begins consuming in the background. A stopped consumer cannot be
// started again.
func (c *Consumer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != idle {
		return errors.New("kafka consumer: already started")
	}
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handler registered")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = running
	for topic, h := range c.handlers {
		r := c.newReader(topic)
		c.readers = append(c.readers, r)
		c.wg.Add(1)
		go c.consume(ctx, topic, r, h)
		c.logInfo("kafka consumer: consuming",
			applogger.String("topic", topic),
			applogger.String("group", c.cfg.GroupID),
			applogger.Int("workers", c.cfg.Workers),
		)
	}
	return nil
}

// Stop cancels consumption and waits for the handlers, at most until ctx
// ends. Messages interrupted by the stop are not committed.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != running {
		wasIdle := c.state == idle
		c.state = stopped
		c.mu.Unlock()
		if wasIdle && c.dlq != nil {
			return c.dlq.Close()
		}
		return nil
	}
	c.state = stopped
	c.cancel()
	c.mu.Unlock()

	var err error
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("kafka consumer: waiting for handlers: %w", ctx.Err())
	}

	for _, r := range c.readers {
		err = errors.Join(err, r.Close())
	}
	if c.dlq != nil {
		err = errors.Join(err, c.dlq.Close())
	}
	return err
}

func (c *Consumer) consume(ctx context.Context, topic string, r reader, h MessageHandler) {
	defer c.wg.Done()

	shards := make([]chan kafka.Message, c.cfg.Workers)
	var workers sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan kafka.Message, c.cfg.BufferSize)
		workers.Add(1)
		go func(in <-chan kafka.Message) {
			defer workers.Done()
			for msg := range in {
				c.process(ctx, r, h, msg)
			}
		}(shards[i])
	}
	defer func() {
		for _, s := range shards {
			close(s)
		}
		workers.Wait()
	}()

	failures := 0
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			c.logWarn("kafka consumer: fetch", applogger.String("topic", topic), applogger.Int("failures", failures), applogger.Error(err))
			if !sleep(ctx, backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, failures)) {
				return
			}
			continue
		}
		failures = 0
		if msg.HighWaterMark > 0 {
			c.m.lag.WithLabelValues(topic).Set(float64(msg.HighWaterMark - msg.Offset - 1))
		}
		select {
		case shards[msg.Partition%len(shards)] <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// process handles one message and commits it, unless the consumer is
// stopping. Failed messages go to the DLQ when one is configured and are
// dropped otherwise.
func (c *Consumer) process(ctx context.Context, r reader, h MessageHandler, msg kafka.Message) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	attempts, err := c.handle(ctx, h, msg)
	c.m.handle.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
	if err != nil && ctx.Err() != nil {
		return
	}

	outcome := "ok"
	switch {
	case err == nil && attempts > 1:
		outcome = "retried_ok"
	case err != nil:
		outcome = "dropped"
		if c.dlq != nil {
			outcome = "dlq"
			if derr := c.deadLetter(ctx, msg, err); derr != nil {
				outcome = "dlq_failed"
				c.logError("kafka consumer: dead letter", applogger.String("topic", msg.Topic), applogger.Error(derr))
			}
		}
		c.logError("kafka consumer: handle",
			applogger.String("topic", msg.Topic),
			applogger.Int("partition", msg.Partition),
			applogger.Int64("offset", msg.Offset),
			applogger.Int("attempts", attempts),
			applogger.String("outcome", outcome),
			applogger.Error(err),
		)
	}
	c.m.handled.WithLabelValues(msg.Topic, outcome).Inc()

	if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logError("kafka consumer: commit", applogger.String("topic", msg.Topic), applogger.Int64("offset", msg.Offset), applogger.Error(err))
	}
}

func (c *Consumer) handle(ctx context.Context, h MessageHandler, msg kafka.Message) (attempts int, err error) {
	hctx, err := c.o.hook.Before(ctx, msg)
	if err != nil {
		return 0, Permanent(err)
	}
	defer func() { c.o.hook.After(hctx, msg, err) }()

	for attempts = 1; ; attempts++ {
		err = call(hctx, h, msg.Value)
		if err == nil || IsPermanent(err) || attempts > c.cfg.RetryMax {
			return attempts, err
		}
		if !sleep(hctx, backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)) {
			return attempts, err
		}
	}
}

func call(ctx context.Context, h MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return h.Handle(ctx, data)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "source_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "source_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "source_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
	)
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.dlq.WriteMessages(wctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers})
}

// backoff doubles from min up to max and subtracts up to half as jitter.
func backoff(lo, hi time.Duration, attempt int) time.Duration {
	d := hi
	if attempt < 32 {
		if exp := lo << (attempt - 1); exp > 0 && exp < hi {
			d = exp
		}
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int64N(half))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Consumer) logInfo(msg string, fields ...applogger.Field) {
	if c.o.l != nil {
		c.o.l.Info(msg, fields...)
	}
}

func (c *Consumer) logWarn(msg string, fields ...applogger.Field) {
	if c.o.l != nil {
		c.o.l.Warn(msg, fields...)
	}
}

func (c *Consumer) logError(msg string, fields ...applogger.Field) {
	if c.o.l != nil {
		c.o.l.Error(msg, fields...)
	}
}
