// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"microfinance-scoring/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// RetryConfig defines the backoff used while the broker is unreachable.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  10,
	InitialDelay: 2 * time.Second,
	MaxDelay:     30 * time.Second,
}

// Connect builds a Zeebe client and checks the topology, retrying transient
// failures with exponential backoff.
func Connect(ctx context.Context, cfg config.CamundaConfig, retry RetryConfig, log *zap.Logger) (zbc.Client, error) {
	var client zbc.Client
	err := RetryWithBackoff(ctx, func() error {
		c, err := zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.BrokerAddress,
			UsePlaintextConnection: cfg.Plaintext,
		})
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.RequestTimeout))
		defer cancel()
		if _, err := c.NewTopologyCommand().Send(pingCtx); err != nil {
			_ = c.Close()
			return fmt.Errorf("broker %s unreachable: %w", cfg.BrokerAddress, err)
		}
		client = c
		return nil
	}, retry, log, "Zeebe client initialization")

	return client, err
}

// RetryWithBackoff runs operation until it succeeds, the attempts are used up,
// the error is not transient, or ctx ends.
func RetryWithBackoff(ctx context.Context, operation func() error, retry RetryConfig, log *zap.Logger, operationName string) error {
	var err error
	delay := retry.InitialDelay

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == retry.MaxAttempts {
			break
		}

		log.Warn(operationName+" failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", retry.MaxAttempts),
			zap.Duration("nextRetryIn", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
		}

		delay *= 2
		if retry.MaxDelay > 0 && delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}

	return fmt.Errorf("%s failed: %w", operationName, err)
}

var retryablePhrases = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
	"broken pipe",
	"no such host",
}

// IsRetryable reports whether err looks like a transient transport failure.
func IsRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
