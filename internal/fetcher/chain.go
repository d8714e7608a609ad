// Package fetcher implements the ordered fallback chain used to pull data
// from redundant upstream providers.
package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

// ErrExhausted is returned when every adapter in the chain failed or came
// back empty. Callers keep their previous value instead of erroring out the
// whole cycle.
var ErrExhausted = errors.New("fetcher: all adapters exhausted")

// ErrNoData marks an adapter attempt that succeeded at the transport level
// but produced nothing usable. The chain treats it like any other failure.
var ErrNoData = errors.New("fetcher: no data")

// Adapter is one provider in a fallback chain
type Adapter[T any] interface {
	Name() string
	Fetch(ctx context.Context) (T, error)
}

type adapterFunc[T any] struct {
	name string
	fn   func(ctx context.Context) (T, error)
}

func (a adapterFunc[T]) Name() string { return a.name }

func (a adapterFunc[T]) Fetch(ctx context.Context) (T, error) { return a.fn(ctx) }

// Func wraps a plain function into an Adapter
func Func[T any](name string, fn func(ctx context.Context) (T, error)) Adapter[T] {
	return adapterFunc[T]{name: name, fn: fn}
}

// Chain tries adapters strictly in priority order. Each attempt is
// independently time-bounded; the first non-empty success short-circuits the
// chain. Every call starts again from the top priority, so a recovered
// primary source is picked up within one cycle.
type Chain[T any] struct {
	name     string
	timeout  time.Duration
	empty    func(T) bool
	adapters []Adapter[T]
}

// NewChain creates a fallback chain. The empty predicate may be nil when the
// adapters already report ErrNoData themselves.
func NewChain[T any](name string, timeout time.Duration, empty func(T) bool, adapters ...Adapter[T]) *Chain[T] {
	return &Chain[T]{
		name:     name,
		timeout:  timeout,
		empty:    empty,
		adapters: adapters,
	}
}

// Fetch returns the first adapter's non-empty result along with the name of
// the adapter that produced it, or ErrExhausted when every tier failed.
func (c *Chain[T]) Fetch(ctx context.Context) (T, string, error) {
	var zero T
	for _, adapter := range c.adapters {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		value, err := adapter.Fetch(attemptCtx)
		cancel()

		if err != nil {
			zaplogger.Debug("adapter failed, falling back", zaplogger.Fields{
				"chain":   c.name,
				"adapter": adapter.Name(),
				"error":   err.Error(),
			})
			continue
		}
		if c.empty != nil && c.empty(value) {
			zaplogger.Debug("adapter returned empty result, falling back", zaplogger.Fields{
				"chain":   c.name,
				"adapter": adapter.Name(),
			})
			continue
		}
		return value, adapter.Name(), nil
	}
	return zero, "", ErrExhausted
}
