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

package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/treasury/api"
	"github.com/blinklabs-io/treasury/archive"
	"github.com/blinklabs-io/treasury/database"
	"github.com/blinklabs-io/treasury/event"
	"github.com/blinklabs-io/treasury/event/natsbridge"
	"github.com/blinklabs-io/treasury/fund"
	"github.com/blinklabs-io/treasury/gate"
	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
)

type Node struct {
	db            *database.Database
	eventBus      *event.EventBus
	fund          *fund.Fund
	api           *api.API
	registry      *gate.Registry
	natsConn      *nats.Conn
	archiver      *archive.Archiver
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	ready         chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Ready is closed once Run has started every component
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// Fund returns the governance engine. It is nil until the node is ready
func (n *Node) Fund() *fund.Fund {
	return n.fund
}

func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(
		database.WithDataDir(n.config.dataDir),
		database.WithLogger(n.config.logger),
		database.WithPromRegistry(n.config.promRegistry),
		database.WithJournalCacheSizes(
			n.config.journalBlockCache,
			n.config.journalIndexCache,
		),
		database.WithJournalGcInterval(n.config.journalGcInterval),
	)
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.JournalCheckpointError
		if errors.As(err, &dbErr) {
			n.config.logger.Error(
				"journal and fund state are out of step, refusing to start",
				"error", err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Membership gates
	memberGate, err := n.setupGate()
	if err != nil {
		return err
	}
	fundCfg := fund.FundConfig{
		Logger:        n.config.logger,
		EventBus:      n.eventBus,
		PromRegistry:  n.config.promRegistry,
		Store:         n.db,
		Params:        n.config.fundParams,
		OpenExecution: n.config.openExecution,
	}
	// Only consult a lookup that has a source behind it. An HTTP gate with
	// no identity service would otherwise report every account unregistered
	if memberGate != nil {
		if n.config.registryFile != "" || n.config.identityUrl != "" {
			fundCfg.Identity = memberGate
		}
		if n.config.registryFile != "" || n.config.reputationUrl != "" {
			fundCfg.Reputation = memberGate
		}
	}
	f, err := fund.NewFund(ctx, fundCfg)
	if err != nil {
		return fmt.Errorf("failed to load fund: %w", err)
	}
	n.fund = f
	// Forward events to NATS
	if n.config.natsUrl != "" {
		conn, err := natsbridge.Connect(n.config.natsUrl, n.config.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		n.natsConn = conn
		natsbridge.New(conn, n.config.natsPrefix, n.config.logger).
			Attach(n.eventBus)
	}
	// Journal archive
	if n.config.archiveUrl != "" {
		target, err := archive.NewTarget(
			ctx,
			archive.TargetConfig{
				URL:             n.config.archiveUrl,
				CredentialsFile: n.config.archiveCredentialsFile,
				Region:          n.config.archiveRegion,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to configure archive: %w", err)
		}
		n.archiver = archive.NewArchiver(n.db, target, n.config.logger)
		if n.config.archiveInterval > 0 {
			n.archiver.Start(n.config.archiveInterval)
		}
	}
	// REST API
	n.api = api.New(
		api.APIConfig{
			ListenAddress: n.config.listenAddress,
			PeriodLength:  n.config.periodLength,
			RateLimit:     n.config.rateLimit,
			RateBurst:     n.config.rateBurst,
			PromRegistry:  n.config.promRegistry,
			ReuseAddress:  true,
		},
		n.fund,
		n.db,
		n.config.logger,
	)
	if err := n.api.Start(ctx); err != nil {
		return err
	}
	close(n.ready)

	// Wait for shutdown signal
	select {
	case <-n.done:
	case <-ctx.Done():
		return n.Stop()
	}
	return nil
}

// setupGate builds the deposit gate from the configured sources. It returns
// nil when no gate is configured
func (n *Node) setupGate() (gate.Gate, error) {
	if n.config.registryFile != "" {
		registry, err := gate.NewRegistry(
			n.config.registryFile,
			gate.WithRegistryLogger(n.config.logger),
			gate.WithRegistryPromRegistry(n.config.promRegistry),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load agent registry: %w", err)
		}
		n.registry = registry
		if err := registry.Watch(); err != nil {
			return nil, fmt.Errorf("failed to watch agent registry: %w", err)
		}
		return registry, nil
	}
	if n.config.identityUrl == "" && n.config.reputationUrl == "" {
		return nil, nil
	}
	var ret gate.Gate = gate.NewHTTPGate(
		n.config.identityUrl,
		n.config.reputationUrl,
		gate.WithHTTPLogger(n.config.logger),
		gate.WithHTTPPromRegistry(n.config.promRegistry),
	)
	if n.config.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: n.config.redisAddr})
		n.shutdownFuncs = append(
			n.shutdownFuncs,
			func(context.Context) error { return client.Close() },
		)
		cacheOpts := []gate.CachedGateOptionFunc{
			gate.WithCacheLogger(n.config.logger),
			gate.WithCachePromRegistry(n.config.promRegistry),
		}
		if n.config.cacheTTL > 0 {
			cacheOpts = append(cacheOpts, gate.WithCacheTTL(n.config.cacheTTL))
		}
		ret = gate.NewCachedGate(ret, client, cacheOpts...)
	}
	return ret, nil
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush outbound data
	n.config.logger.Debug("shutdown phase 2: flushing archive and events")

	if n.archiver != nil {
		if _, archiveErr := n.archiver.Archive(ctx, 0); archiveErr != nil {
			err = errors.Join(err, fmt.Errorf("final archive: %w", archiveErr))
		}
		if stopErr := n.archiver.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("archive shutdown: %w", stopErr))
		}
	}

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	if n.natsConn != nil {
		if flushErr := n.natsConn.FlushWithContext(ctx); flushErr != nil {
			err = errors.Join(err, fmt.Errorf("nats flush: %w", flushErr))
		}
		n.natsConn.Close()
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database")

	if n.registry != nil {
		if closeErr := n.registry.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("registry close: %w", closeErr))
		}
	}

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
