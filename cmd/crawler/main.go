package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mugulhan/smart-crawler/internal/pkg/checker"
	"github.com/mugulhan/smart-crawler/internal/pkg/config"
	"github.com/mugulhan/smart-crawler/internal/pkg/coordinator"
	"github.com/mugulhan/smart-crawler/internal/pkg/dispatch"
	"github.com/mugulhan/smart-crawler/internal/pkg/fetcher"
	"github.com/mugulhan/smart-crawler/internal/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	seedURL := flag.String("seed", "", "seed URL to crawl immediately")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}

	log := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memory := store.NewMemoryStore()

	var statusStore store.StatusStore
	if cfg.Redis.Addr != "" {
		redisStore := store.NewRedisStatusStore(cfg.Redis.Addr, cfg.Redis.Prefix, cfg.Redis.TTL.Std())
		defer redisStore.Close()
		statusStore = redisStore
		log.WithField("addr", cfg.Redis.Addr).Info("status mirror enabled")
	}

	coord := coordinator.New(coordinator.Deps{
		Jobs:   memory,
		Pages:  memory,
		Links:  memory,
		Status: statusStore,
		Fetcher: fetcher.New(fetcher.Options{
			Timeout:      cfg.Crawler.Timeout.Std(),
			UserAgent:    cfg.Crawler.UserAgent,
			MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
			MaxRedirects: cfg.Crawler.MaxRedirects,
		}),
		Checker: checker.New(checker.Options{
			MaxLinks:  cfg.Checker.MaxLinks,
			Workers:   cfg.Checker.Workers,
			Timeout:   cfg.Checker.Timeout.Std(),
			Delay:     cfg.Checker.Delay.Std(),
			UserAgent: cfg.Crawler.UserAgent,
		}, log),
		Log: log,
	}, cfg.Crawler.MaxPages)

	var queue dispatch.Queue
	var source dispatch.Source
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSource := dispatch.NewKafkaSource(dispatch.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID))
		defer kafkaSource.Close()
		kafkaQueue := dispatch.NewKafkaQueue(dispatch.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer kafkaQueue.Close()
		queue, source = kafkaQueue, kafkaSource
		log.WithField("topic", cfg.Kafka.Topic).Info("consuming crawl jobs from kafka")
	} else {
		channel := dispatch.NewChannelDispatch(64)
		queue, source = channel, channel
		log.Info("using in-process job dispatch")
	}

	runner := dispatch.NewRunner(source, coord.Run, cfg.Crawler.ConcurrentJobs, log)

	// A seed on the command line becomes a job like any other: created
	// pending, queued, picked up by the runner.
	var oneShot string
	if *seedURL != "" {
		job := coordinator.NewJob(*seedURL)
		if err := memory.CreateJob(ctx, job); err != nil {
			log.WithError(err).Fatal("creating job")
		}
		if err := queue.Enqueue(ctx, job.ID); err != nil {
			log.WithError(err).Fatal("queueing job")
		}
		oneShot = job.ID
		log.WithFields(logrus.Fields{"job_id": job.ID, "seed": *seedURL}).Info("job queued")
	}

	if oneShot != "" && len(cfg.Kafka.Brokers) == 0 {
		go waitAndReport(ctx, memory, oneShot, stop, log)
	}

	if err := runner.Run(ctx); err != nil {
		log.WithError(err).Error("runner stopped")
	}
	log.Info("shutdown complete")
}

// waitAndReport polls the one-shot job and, once it is terminal, prints
// the full snapshot to stdout and stops the process.
func waitAndReport(ctx context.Context, view *store.MemoryStore, jobID string, stop func(), log *logrus.Logger) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		job, err := view.GetJob(ctx, jobID)
		if err != nil || !job.Status.Terminal() {
			continue
		}
		snapshot, err := view.JobSnapshot(ctx, jobID)
		if err != nil {
			log.WithError(err).Error("reading job snapshot")
			stop()
			return
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			log.WithError(err).Error("writing report")
		}
		stop()
		return
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	if cfg.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
