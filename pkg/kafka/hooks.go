package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Hook runs around the handling of one consumed message. An error from Before
// fails the message without calling the handler.
type Hook interface {
	Before(ctx context.Context, msg kafka.Message) (context.Context, error)
	After(ctx context.Context, msg kafka.Message, err error)
}

// Hooks runs every Before in order, threading the context, and every After in
// reverse order. Panics inside hooks never reach the consumer.
type Hooks []Hook

var ErrHookPanic = errors.New("kafka hook panicked")

func (hs Hooks) Before(ctx context.Context, msg kafka.Message) (context.Context, error) {
	for _, h := range hs {
		if h == nil {
			continue
		}
		next, err := safeBefore(h, ctx, msg)
		if err != nil {
			return ctx, err
		}
		ctx = next
	}
	return ctx, nil
}

func (hs Hooks) After(ctx context.Context, msg kafka.Message, err error) {
	for i := len(hs) - 1; i >= 0; i-- {
		if hs[i] != nil {
			safeAfter(hs[i], ctx, msg, err)
		}
	}
}

func safeBefore(h Hook, ctx context.Context, msg kafka.Message) (out context.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = ctx, fmt.Errorf("%w: %v", ErrHookPanic, r)
		}
	}()
	return h.Before(ctx, msg)
}

func safeAfter(h Hook, ctx context.Context, msg kafka.Message, err error) {
	defer func() { _ = recover() }()
	h.After(ctx, msg, err)
}

// HookFuncs adapts plain functions to Hook. Nil functions do nothing.
type HookFuncs struct {
	BeforeFunc func(context.Context, kafka.Message) (context.Context, error)
	AfterFunc  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) Before(ctx context.Context, msg kafka.Message) (context.Context, error) {
	if h.BeforeFunc == nil {
		return ctx, nil
	}
	return h.BeforeFunc(ctx, msg)
}

func (h HookFuncs) After(ctx context.Context, msg kafka.Message, err error) {
	if h.AfterFunc != nil {
		h.AfterFunc(ctx, msg, err)
	}
}

// HeaderRequestID carries the caller's request id on compute requests and on
// the reports produced for them.
const HeaderRequestID = "request_id"

type ctxKey int

const requestIDKey ctxKey = iota

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Header returns the first value of the named header.
func Header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// RequestIDHook copies the request id header into the handler context.
func RequestIDHook() Hook {
	return HookFuncs{BeforeFunc: func(ctx context.Context, msg kafka.Message) (context.Context, error) {
		return WithRequestID(ctx, Header(msg, HeaderRequestID)), nil
	}}
}
