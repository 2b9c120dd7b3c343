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

// Package api serves the fund over a JSON REST interface. It is the hosting
// layer for the engine: it reads the clock and the treasury balance and
// sequences write operations.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/treasury/database"
	"github.com/blinklabs-io/treasury/database/models"
	"github.com/blinklabs-io/treasury/fund"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"
)

const (
	apiVersion = "0.1.0"

	// AccountHeader carries the caller's account on write requests
	AccountHeader = "X-Treasury-Account"

	DefaultPeriodLength = 86400
)

// Treasury is the custodial balance kept next to the fund, plus its audit
// trail
type Treasury interface {
	TreasuryBalance(ctx context.Context) (*big.Int, error)
	CreditTreasury(
		ctx context.Context,
		amount *big.Int,
		memo string,
		timestamp uint64,
	) (*big.Int, error)
	Transfers(
		ctx context.Context,
		offset int,
		limit int,
	) ([]models.TreasuryTransfer, error)
	JournalHead(ctx context.Context) (uint64, error)
	JournalEntries(
		ctx context.Context,
		from uint64,
		count int,
	) ([]database.JournalEntry, error)
}

type APIConfig struct {
	ListenAddress string
	// PeriodLength is the length of a spending period in seconds
	PeriodLength uint64
	// RateLimit is requests per second across all clients. Zero disables it
	RateLimit    float64
	RateBurst    int
	PromRegistry prometheus.Registerer
	// ReuseAddress sets SO_REUSEADDR on the listening socket
	ReuseAddress bool
	// Clock supplies the current time. Defaults to time.Now
	Clock func() time.Time
}

// API is the fund's REST server.
type API struct {
	config     APIConfig
	logger     *slog.Logger
	fund       *fund.Fund
	treasury   Treasury
	limiter    *rate.Limiter
	metrics    *apiMetrics
	httpServer *http.Server
	mu         sync.Mutex
	// writeMu makes reading the treasury value and running the engine
	// operation a single step
	writeMu sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg APIConfig,
	f *fund.Fund,
	treasury Treasury,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.PeriodLength == 0 {
		cfg.PeriodLength = DefaultPeriodLength
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	a := &API{
		config:   cfg,
		logger:   logger,
		fund:     f,
		treasury: treasury,
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.RateBurst, 1)
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.PromRegistry != nil {
		a.initMetrics(cfg.PromRegistry)
	}
	return a
}

// Handler returns the routed HTTP handler, with middleware applied
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(
		a.requestIdMiddleware,
		a.tracingMiddleware,
		a.loggingMiddleware,
		a.rateLimitMiddleware,
	)
	r.HandleFunc("/", a.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	v0 := r.PathPrefix("/api/v0").Subrouter()
	// Writes
	v0.HandleFunc("/deposits", a.handleDeposit).Methods(http.MethodPost)
	v0.HandleFunc("/withdrawals", a.handleWithdraw).Methods(http.MethodPost)
	v0.HandleFunc("/proposals", a.handleSubmitProposal).Methods(http.MethodPost)
	v0.HandleFunc("/proposals/{id:[0-9]+}/votes", a.handleVote).
		Methods(http.MethodPost)
	v0.HandleFunc("/proposals/{id:[0-9]+}/finalize", a.handleFinalize).
		Methods(http.MethodPost)
	v0.HandleFunc("/proposals/{id:[0-9]+}/execute", a.handleExecute).
		Methods(http.MethodPost)
	v0.HandleFunc("/proposals/{id:[0-9]+}/cancel", a.handleCancel).
		Methods(http.MethodPost)
	v0.HandleFunc("/proposals/{id:[0-9]+}/expire", a.handleExpire).
		Methods(http.MethodPost)
	v0.HandleFunc("/treasury/credits", a.handleCredit).Methods(http.MethodPost)
	// Reads
	v0.HandleFunc("/proposals", a.handleProposals).Methods(http.MethodGet)
	v0.HandleFunc("/proposals/active", a.handleActiveProposals).
		Methods(http.MethodGet)
	v0.HandleFunc("/proposals/{id:[0-9]+}", a.handleProposal).
		Methods(http.MethodGet)
	v0.HandleFunc("/proposals/{id:[0-9]+}/votes", a.handleVotes).
		Methods(http.MethodGet)
	v0.HandleFunc("/proposals/{id:[0-9]+}/votes/{account}", a.handleVoteRecord).
		Methods(http.MethodGet)
	v0.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	v0.HandleFunc("/share-price", a.handleSharePrice).Methods(http.MethodGet)
	v0.HandleFunc("/members", a.handleMembers).Methods(http.MethodGet)
	v0.HandleFunc("/members/{account}", a.handleMember).Methods(http.MethodGet)
	v0.HandleFunc("/periods/current", a.handleCurrentPeriod).
		Methods(http.MethodGet)
	v0.HandleFunc("/periods/{period:[0-9]+}/spent", a.handlePeriodSpent).
		Methods(http.MethodGet)
	v0.HandleFunc("/config", a.handleConfig).Methods(http.MethodGet)
	v0.HandleFunc("/events", a.handleEvents).Methods(http.MethodGet)
	v0.HandleFunc("/treasury", a.handleTreasury).Methods(http.MethodGet)
	v0.HandleFunc("/treasury/transfers", a.handleTransfers).
		Methods(http.MethodGet)

	// A subrouter answers its own mismatches, so both routers need these
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	methodNotAllowed := http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		},
	)
	for _, router := range []*mux.Router{r, v0} {
		router.NotFoundHandler = notFound
		router.MethodNotAllowedHandler = methodNotAllowed
	}
	return r
}

// Start starts the HTTP server in a background goroutine.
func (a *API) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr: a.config.ListenAddress,
		// Serve HTTP/2 without TLS as well as HTTP/1.1
		Handler:           h2c.NewHandler(a.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	listenConfig := net.ListenConfig{}
	if a.config.ReuseAddress {
		listenConfig.Control = socketControl
	}
	ln, err := listenConfig.Listen(ctx, "tcp", server.Addr)
	if err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("API server error", "error", err)
		}
	}()
	a.logger.Info("API listener started on " + ln.Addr().String())

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}

func (a *API) now() uint64 {
	return uint64(a.config.Clock().Unix()) //nolint:gosec // clock is after the epoch
}

// env builds the engine inputs for one operation. Callers that write must
// hold writeMu
func (a *API) env(ctx context.Context, caller fund.Account) (fund.Env, error) {
	balance, err := a.treasury.TreasuryBalance(ctx)
	if err != nil {
		return fund.Env{}, fmt.Errorf("read treasury balance: %w", err)
	}
	now := a.now()
	return fund.Env{
		Caller:        caller,
		Timestamp:     now,
		Period:        now / a.config.PeriodLength,
		TreasuryValue: balance,
	}, nil
}
