// Command classifier-trainer trains the debtor classifier offline and
// publishes the snapshot that running scoring workers pick up.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"microfinance-scoring/internal/common/config"
	"microfinance-scoring/internal/common/database"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/classifier"
	"microfinance-scoring/internal/scoring/engine"
	"microfinance-scoring/internal/scoring/features"
	"microfinance-scoring/internal/store/cache"
	"microfinance-scoring/internal/store/postgres"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to configs/config.yaml)")
	samplesPath := flag.String("samples", "", "JSON file with an inline dataset; the stored samples are used when empty")
	limit := flag.Int("limit", 10000, "Maximum number of stored samples to train on")
	dryRun := flag.Bool("dry-run", false, "Train and report without publishing the snapshot")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall time limit")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	var samples []models.TrainingSample
	if *samplesPath != "" {
		f, err := os.Open(*samplesPath)
		if err != nil {
			zapLog.Fatal("open samples", zap.Error(err))
		}
		samples, err = readSamples(f)
		f.Close()
		if err != nil {
			zapLog.Fatal("read samples", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	store := postgres.New(pg.DB)
	deps := engine.Deps{
		Store:      store,
		Training:   store,
		Classifier: classifier.New(features.Size, trainerOptions(cfg.Scoring)),
		Logger:     logger.NewZapAdapter(zapLog),
	}

	if !*dryRun {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis unavailable", zap.Error(err))
		}
		defer rdb.Close()
		deps.Snapshots = cache.New(rdb.Client, cfg.Scoring.ModelSnapshotKey)
	}

	ecfg := engine.ConfigFrom(cfg.Scoring)
	ecfg.TrainingSampleCap = *limit
	eng := engine.New(ecfg, deps)

	res, err := eng.TrainClassifier(ctx, samples)
	if err != nil {
		zapLog.Fatal("training failed", zap.Error(err))
	}

	if err := printResult(os.Stdout, res, !*dryRun); err != nil {
		zapLog.Fatal("write result", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func trainerOptions(sc config.ScoringConfig) classifier.Options {
	opts := classifier.DefaultOptions()
	if sc.MinTrainingSamples > 0 {
		opts.MinSamples = sc.MinTrainingSamples
	}
	return opts
}

// readSamples accepts either a bare array or {"samples": [...]}.
func readSamples(r io.Reader) ([]models.TrainingSample, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var samples []models.TrainingSample
	if err := json.Unmarshal(raw, &samples); err == nil {
		return samples, nil
	}
	var wrapped struct {
		Samples []models.TrainingSample `json:"samples"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("samples must be a JSON array or an object with a samples field: %w", err)
	}
	return wrapped.Samples, nil
}

func printResult(w io.Writer, res *models.TrainingResult, published bool) error {
	out := struct {
		*models.TrainingResult
		Published bool `json:"published"`
	}{res, published}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
