// internal/workers/scoring/recalculate-scores/config.go
package recalculatescores

import (
	"time"

	"microfinance-scoring/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Config{Timeout: timeout}
}
