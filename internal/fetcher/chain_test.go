package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFirstAdapterWins(t *testing.T) {
	var secondCalled bool
	chain := NewChain("test", time.Second, nil,
		Func("first", func(ctx context.Context) (int, error) { return 42, nil }),
		Func("second", func(ctx context.Context) (int, error) {
			secondCalled = true
			return 0, nil
		}),
	)

	value, adapter, err := chain.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, "first", adapter)
	assert.False(t, secondCalled, "second adapter must not run when the first succeeds")
}

func TestChainFallsBackOnError(t *testing.T) {
	chain := NewChain("test", time.Second, nil,
		Func("first", func(ctx context.Context) (string, error) {
			return "", errors.New("upstream down")
		}),
		Func("second", func(ctx context.Context) (string, error) { return "ok", nil }),
	)

	value, adapter, err := chain.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, "second", adapter)
}

func TestChainFallsBackOnEmptyResult(t *testing.T) {
	chain := NewChain("test", time.Second,
		func(batch []int) bool { return len(batch) == 0 },
		Func("first", func(ctx context.Context) ([]int, error) { return []int{}, nil }),
		Func("second", func(ctx context.Context) ([]int, error) { return []int{7}, nil }),
	)

	value, adapter, err := chain.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{7}, value)
	assert.Equal(t, "second", adapter)
}

func TestChainExhausted(t *testing.T) {
	chain := NewChain("test", time.Second, nil,
		Func("first", func(ctx context.Context) (int, error) { return 0, errors.New("down") }),
		Func("second", func(ctx context.Context) (int, error) { return 0, ErrNoData }),
	)

	_, _, err := chain.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestChainRetriesPrimaryEveryCall(t *testing.T) {
	var calls int
	chain := NewChain("test", time.Second, nil,
		Func("first", func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, errors.New("transient")
			}
			return 1, nil
		}),
		Func("second", func(ctx context.Context) (int, error) { return 2, nil }),
	)

	_, adapter, err := chain.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", adapter)

	// Recovered primary wins the next cycle
	_, adapter, err = chain.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", adapter)
}

func TestChainAdapterTimeout(t *testing.T) {
	chain := NewChain("test", 20*time.Millisecond, nil,
		Func("slow", func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Second):
				return 1, nil
			}
		}),
		Func("fast", func(ctx context.Context) (int, error) { return 2, nil }),
	)

	value, adapter, err := chain.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, value)
	assert.Equal(t, "fast", adapter)
}
