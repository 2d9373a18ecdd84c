package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"dial tcp: lookup zeebe: no such host", true},
		{"rpc error: code = NotFound desc = process not found", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryable(errors.New(tt.err)), tt.err)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retry := RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	log := zap.NewNop()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, retry, log, "op")
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return errors.New("invalid credentials")
		}, retry, log, "op")
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return errors.New("timeout")
		}, retry, log, "op")
		require.Error(t, err)
		assert.Equal(t, 4, calls)
		assert.Contains(t, err.Error(), "op failed")
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(ctx, func() error { return errors.New("unavailable") },
			RetryConfig{MaxAttempts: 3, InitialDelay: time.Second}, log, "op")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
