// cmd/scoring-worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microfinance-scoring/internal/common/aws"
	"microfinance-scoring/internal/common/camunda"
	"microfinance-scoring/internal/common/config"
	"microfinance-scoring/internal/common/database"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/messaging"
	"microfinance-scoring/internal/common/observability"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/scoring/classifier"
	"microfinance-scoring/internal/scoring/engine"
	"microfinance-scoring/internal/scoring/features"
	"microfinance-scoring/internal/scoring/notify"
	"microfinance-scoring/internal/store/cache"
	"microfinance-scoring/internal/store/postgres"
	"microfinance-scoring/internal/store/search"
	"microfinance-scoring/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	ae "microfinance-scoring/internal/workers/scoring/apply-transaction"
	ce "microfinance-scoring/internal/workers/scoring/check-eligibility"
	rs "microfinance-scoring/internal/workers/scoring/recalculate-scores"
	sa "microfinance-scoring/internal/workers/scoring/scoring-analytics"
	sh "microfinance-scoring/internal/workers/scoring/score-history"
	ss "microfinance-scoring/internal/workers/scoring/score-subject"
	tc "microfinance-scoring/internal/workers/scoring/train-classifier"
)

const modelRefreshInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting scoring worker",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zeebeClient, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, zapLog)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebeClient.Close()

	pg, err := connectPostgres(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}

	rdb, err := connectRedis(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	store := postgres.New(pg.DB)
	redisCache := cache.New(rdb.Client, cfg.Scoring.ModelSnapshotKey)

	deps := engine.Deps{
		Store:      store,
		Training:   store,
		Cache:      redisCache,
		Snapshots:  redisCache,
		Classifier: classifier.New(features.Size, classifierOptions(cfg.Scoring)),
		Logger:     log,
		Obs:        obs,
	}

	var es *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		es, err = connectElasticsearch(ctx, cfg)
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, score indexing disabled", zap.Error(err))
		} else {
			deps.Search = search.New(es.Client, es.Index)
		}
	}

	channels, producer := notificationChannels(ctx, cfg, store, zapLog)
	if producer != nil {
		defer producer.Close()
	}
	trigger := notify.NewTrigger(cfg.Scoring.SignificanceDelta, store, log, channels...)
	deps.Notifier = trigger

	eng := engine.New(engine.ConfigFrom(cfg.Scoring), deps)

	if loaded, err := eng.LoadPublishedModel(ctx); err != nil {
		zapLog.Warn("no classifier snapshot loaded, using rule-based scoring", zap.Error(err))
	} else if loaded {
		zapLog.Info("classifier snapshot loaded", zap.String("modelVersion", eng.Classifier().Current().Version))
	}
	go eng.RunModelRefreshLoop(ctx, modelRefreshInterval)
	go eng.RunRetrainLoop(ctx, cfg.Scoring.RetrainEvery())

	validator, err := validation.NewValidator(registry.Default())
	if err != nil {
		zapLog.Fatal("task registry schemas invalid", zap.Error(err))
	}

	workers := startWorkers(zeebeClient, cfg, eng, validator, obs, log, zapLog)
	zapLog.Info("scoring workers registered", zap.Int("count", len(workers)))

	checks := []readinessCheck{
		{name: "postgres", check: pg.Ping},
		{name: "redis", check: rdb.Ping, stats: rdb.PoolStats},
	}
	if es != nil {
		checks = append(checks, readinessCheck{name: "elasticsearch", check: es.Ping})
	}
	srv := newHealthServer(cfg.Server.Port, checks)
	go func() {
		zapLog.Info("health/metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("health server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutdown signal received, stopping workers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	camunda.StopWorkers(shutdownCtx, workers, zapLog)
	_ = srv.Shutdown(shutdownCtx)
	trigger.Wait()
	zapLog.Info("scoring worker stopped")
}

func classifierOptions(sc config.ScoringConfig) classifier.Options {
	opts := classifier.DefaultOptions()
	if sc.MinTrainingSamples > 0 {
		opts.MinSamples = sc.MinTrainingSamples
	}
	return opts
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := camunda.RetryWithBackoff(ctx, func() error {
		c, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			_ = c.Close()
			return fmt.Errorf("postgres ping: %w", err)
		}
		pg = c
		return nil
	}, camunda.DefaultRetryConfig, log, "PostgreSQL connection")
	return pg, err
}

func connectRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*database.RedisClient, error) {
	var rdb *database.RedisClient
	err := camunda.RetryWithBackoff(ctx, func() error {
		c, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return err
		}
		rdb = c
		return nil
	}, camunda.DefaultRetryConfig, log, "Redis connection")
	return rdb, err
}

func connectElasticsearch(ctx context.Context, cfg *config.Config) (*database.ElasticsearchClient, error) {
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := es.Ping(ctx); err != nil {
		return nil, err
	}
	if err := es.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return es, nil
}

// notificationChannels always persists notifications and adds the optional
// Kafka, email and SMS deliveries that are enabled.
func notificationChannels(ctx context.Context, cfg *config.Config, store *postgres.Store, log *zap.Logger) ([]notify.Channel, *messaging.Producer) {
	channels := []notify.Channel{notify.NewStoreChannel(store)}

	var producer *messaging.Producer
	if cfg.Kafka.Enabled {
		p, err := messaging.NewProducer(cfg.Kafka)
		if err != nil {
			log.Warn("kafka producer disabled", zap.Error(err))
		} else {
			producer = p
			channels = append(channels, notify.NewKafkaChannel(p))
		}
	}

	n := cfg.Notifications
	if n.Email.Enabled || n.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, n.AWS.Region)
		if err != nil {
			log.Warn("aws config unavailable, email and sms disabled", zap.Error(err))
			return channels, producer
		}
		if n.Email.Enabled {
			channels = append(channels, notify.NewEmailChannel(aws.NewEmailSender(awsCfg, n.Email.FromEmail)))
		}
		if n.SMS.Enabled {
			channels = append(channels, notify.NewSMSChannel(aws.NewSMSSender(awsCfg, n.SMS.SenderID)))
		}
	}
	return channels, producer
}

type registration struct {
	taskType string
	handler  camunda.HandlerFunc
}

func startWorkers(client zbc.Client, cfg *config.Config, eng *engine.Engine, v *validation.Validator,
	obs *observability.Observability, log logger.Logger, zapLog *zap.Logger) []worker.JobWorker {
	wcfg := func(taskType string) config.WorkerConfig { return config.GetWorkerConfig(cfg, taskType) }

	regs := []registration{
		{ss.TaskType, ss.NewHandler(ss.LoadConfig(wcfg(ss.TaskType)), ss.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
		{ae.TaskType, ae.NewHandler(ae.LoadConfig(wcfg(ae.TaskType)), ae.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
		{ce.TaskType, ce.NewHandler(ce.LoadConfig(wcfg(ce.TaskType)), ce.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
		{tc.TaskType, tc.NewHandler(tc.LoadConfig(wcfg(tc.TaskType)), tc.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
		{sh.TaskType, sh.NewHandler(sh.LoadConfig(wcfg(sh.TaskType)), sh.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
		{rs.TaskType, rs.NewHandler(rs.LoadConfig(wcfg(rs.TaskType)), rs.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
		{sa.TaskType, sa.NewHandler(sa.LoadConfig(wcfg(sa.TaskType)), sa.Dependencies{Engine: eng, Validator: v, Obs: obs, Logger: log}).Handle},
	}

	var workers []worker.JobWorker
	for _, r := range regs {
		if jw := camunda.StartWorker(client, r.taskType, wcfg(r.taskType), r.handler, zapLog); jw != nil {
			workers = append(workers, jw)
		}
	}
	return workers
}
