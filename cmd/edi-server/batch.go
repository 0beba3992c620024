package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edi/edi/internal/config"
	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/pipeline"
	"github.com/edi/edi/internal/platform/archive"
	"github.com/edi/edi/internal/platform/db"
	"github.com/edi/edi/internal/platform/events"
	"github.com/edi/edi/internal/platform/metrics"
)

// ErrGatesFailed is returned by batch --fail-on-gates when a threshold is
// exceeded.
var ErrGatesFailed = errors.New("quality gates failed")

type batchFlags struct {
	workers      int
	load         bool
	qualityGates bool
	failOnGates  bool
	out          string
	metricsFile  string
}

func batchCmd() *cobra.Command {
	var f batchFlags
	cmd := &cobra.Command{
		Use:   "batch PATH...",
		Short: "Decode, match and optionally load every interchange file under PATH",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				f.workers = cfg.Workers
			}
			if !cmd.Flags().Changed("quality-gates") {
				f.qualityGates = cfg.QualityGates
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cfg, logger, f, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 4, "files decoded concurrently (default from WORKERS)")
	cmd.Flags().BoolVar(&f.load, "load", false, "persist claims, payments and the file log to DATABASE_URL")
	cmd.Flags().BoolVar(&f.qualityGates, "quality-gates", false, "evaluate quality gates over the batch")
	cmd.Flags().BoolVar(&f.failOnGates, "fail-on-gates", false, "exit non-zero when a quality gate fails")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the JSON report here instead of stdout")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write batch metrics in Prometheus text format")
	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config, logger zerolog.Logger, f batchFlags, paths []string, stdout io.Writer) error {
	matchCfg, err := matching.LoadConfig(cfg.MatchingConfigPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.MatchingConfigPath).Msg("using default matching config")
	}

	opts := pipeline.Options{Workers: f.workers}

	var pool *pgxpool.Pool
	if f.load {
		if !cfg.HasDatabase() {
			return fmt.Errorf("--load requires DATABASE_URL")
		}
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		opts.Loader = pipeline.NewPGLoader(pool)
		opts.Matcher = matching.NewMatcher(matching.NewStorePG(pool), matchCfg)
	} else {
		opts.Collector = matching.NewMemoryStore()
		opts.Matcher = matching.NewMatcher(opts.Collector, matchCfg)
	}

	if cfg.HasArchive() {
		store, err := archive.NewMinioStore(ctx, archive.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		opts.Archive = store
	}

	if cfg.HasKafka() {
		pub, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: events.ParseBrokers(cfg.KafkaBrokers),
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing event publisher")
			}
		}()
		opts.Publisher = pub
	}

	if f.metricsFile != "" {
		opts.Metrics = metrics.New(false)
	}

	if f.qualityGates || f.failOnGates {
		opts.Gates = &pipeline.Gates{
			MaxInvalidDateRate: cfg.MaxInvalidDateRate,
			MaxUnmatchedRate:   cfg.MaxUnmatchedRate,
			MaxParseFailRate:   cfg.MaxParseFailRate,
		}
	}

	report, err := pipeline.New(logger, opts).Run(ctx, paths...)
	if err != nil {
		return err
	}

	if err := writeReport(report, f.out, stdout); err != nil {
		return err
	}
	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, opts.Metrics.Registry()); err != nil {
			return fmt.Errorf("metrics file: %w", err)
		}
	}

	if f.failOnGates && report.Digest.Gates != nil && !report.Digest.Gates.Passed() {
		return ErrGatesFailed
	}
	return nil
}

func writeReport(report *pipeline.Report, path string, stdout io.Writer) error {
	w := stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
