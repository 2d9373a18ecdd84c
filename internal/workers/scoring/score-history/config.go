// internal/workers/scoring/score-history/config.go
package scorehistory

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
		timeout = 5 * time.Second
	}
	return &Config{Timeout: timeout}
}
