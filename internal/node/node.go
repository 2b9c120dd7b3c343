// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/treasury"
	"github.com/blinklabs-io/treasury/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// nodeOptions maps the loaded config onto node options
func nodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
) ([]treasury.ConfigOptionFunc, error) {
	params, err := cfg.Fund.Params()
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	opts := []treasury.ConfigOptionFunc{
		treasury.WithLogger(logger),
		treasury.WithDatabasePath(cfg.DatabasePath),
		treasury.WithListenAddress(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		),
		treasury.WithPeriodLength(cfg.PeriodLength),
		treasury.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		treasury.WithFundParams(params),
		treasury.WithOpenExecution(cfg.Fund.OpenExecution),
		treasury.WithRegistryFile(cfg.Gate.RegistryFile),
		treasury.WithIdentityUrl(cfg.Gate.IdentityUrl),
		treasury.WithReputationUrl(cfg.Gate.ReputationUrl),
		treasury.WithRedisAddr(cfg.Gate.RedisAddr),
		treasury.WithNats(cfg.Nats.Url, cfg.Nats.Prefix),
		treasury.WithArchiveRegion(cfg.Archive.Region),
		treasury.WithArchiveCredentialsFile(cfg.Archive.CredentialsFile),
		treasury.WithTracing(cfg.Tracing.Enabled),
		treasury.WithTracingStdout(cfg.Tracing.Stdout),
		treasury.WithShutdownTimeout(shutdownTimeout),
		treasury.WithJournalCacheSizes(
			cfg.Journal.BlockCacheSize,
			cfg.Journal.IndexCacheSize,
		),
		// Enable metrics with default prometheus registry
		treasury.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}
	if cfg.Journal.GcInterval != "" {
		gcInterval, err := time.ParseDuration(cfg.Journal.GcInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid journal GC interval: %w", err)
		}
		opts = append(opts, treasury.WithJournalGcInterval(gcInterval))
	}
	if cfg.Gate.CacheTTL != "" {
		cacheTTL, err := time.ParseDuration(cfg.Gate.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid gate cache TTL: %w", err)
		}
		opts = append(opts, treasury.WithCacheTTL(cacheTTL))
	}
	if cfg.Archive.Url != "" {
		interval := treasury.DefaultArchiveInterval
		if cfg.Archive.Interval != "" {
			interval, err = time.ParseDuration(cfg.Archive.Interval)
			if err != nil {
				return nil, fmt.Errorf("invalid archive interval: %w", err)
			}
		}
		opts = append(opts, treasury.WithArchive(cfg.Archive.Url, interval))
	}
	return opts, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := nodeOptions(cfg, logger)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := time.ParseDuration(cfg.ShutdownTimeout)
	n, err := treasury.New(treasury.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()
	shutdownMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := n.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		shutdownMetrics()
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		if err == nil {
			logger.Info("node stopped")
			shutdownMetrics()
			return n.Stop()
		}
		logger.Error("node error", "error", err)
		signalCtxStop()
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}
		shutdownMetrics()
		return err
	}
}
