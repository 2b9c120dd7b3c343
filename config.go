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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/treasury/archive"
	"github.com/blinklabs-io/treasury/fund"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultListenAddress   = ":8080"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultArchiveInterval = time.Hour
)

type Config struct {
	promRegistry  prometheus.Registerer
	logger        *slog.Logger
	fundParams    fund.FundParams
	dataDir       string
	listenAddress string
	periodLength  uint64
	rateLimit     float64
	rateBurst     int
	openExecution bool
	// Journal store sizing, zero keeps the store defaults
	journalBlockCache uint64
	journalIndexCache uint64
	journalGcInterval time.Duration
	// Membership gates. A registry file and remote services are exclusive
	registryFile  string
	identityUrl   string
	reputationUrl string
	redisAddr     string
	cacheTTL      time.Duration
	// Event forwarding to NATS (empty URL = disabled)
	natsUrl    string
	natsPrefix string
	// Journal archive (empty URL = disabled)
	archiveUrl             string
	archiveInterval        time.Duration
	archiveRegion          string
	archiveCredentialsFile string
	tracing                bool
	tracingStdout          bool
	shutdownTimeout        time.Duration
}

func (n *Node) configValidate() error {
	if n.config.listenAddress == "" {
		return errors.New("no listen address defined")
	}
	if n.config.registryFile != "" &&
		(n.config.identityUrl != "" || n.config.reputationUrl != "") {
		return errors.New(
			"registry file cannot be combined with identity or reputation URLs",
		)
	}
	if n.config.redisAddr != "" &&
		n.config.identityUrl == "" &&
		n.config.reputationUrl == "" {
		return errors.New("redis cache requires an identity or reputation URL")
	}
	if n.config.archiveUrl != "" {
		if _, _, _, err := archive.ParseURL(n.config.archiveUrl); err != nil {
			return fmt.Errorf("invalid archive URL: %w", err)
		}
	}
	if n.config.archiveInterval < 0 {
		return fmt.Errorf(
			"invalid archive interval: %s",
			n.config.archiveInterval,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new treasury config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		listenAddress:   DefaultListenAddress,
		archiveInterval: DefaultArchiveInterval,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithJournalCacheSizes sets the journal store's block and index cache sizes
// in bytes
func WithJournalCacheSizes(blockCache, indexCache uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.journalBlockCache = blockCache
		c.journalIndexCache = indexCache
	}
}

// WithJournalGcInterval sets how often the journal's value log is compacted
func WithJournalGcInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.journalGcInterval = interval
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithListenAddress specifies the address for the REST API
func WithListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.listenAddress = addr
	}
}

// WithPeriodLength specifies the length of a spending period in seconds
func WithPeriodLength(seconds uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.periodLength = seconds
	}
}

// WithRateLimit limits API requests per second. A zero limit disables it
func WithRateLimit(limit float64, burst int) ConfigOptionFunc {
	return func(c *Config) {
		c.rateLimit = limit
		c.rateBurst = burst
	}
}

// WithFundParams specifies the governance parameters. Unset fields take the stock defaults
func WithFundParams(params fund.FundParams) ConfigOptionFunc {
	return func(c *Config) {
		c.fundParams = params
	}
}

// WithOpenExecution allows accounts without shares to execute passed proposals
func WithOpenExecution(open bool) ConfigOptionFunc {
	return func(c *Config) {
		c.openExecution = open
	}
}

// WithRegistryFile gates deposits with a local agent registry file, which is
// watched for changes
func WithRegistryFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.registryFile = path
	}
}

// WithIdentityUrl specifies the remote identity service
func WithIdentityUrl(identityUrl string) ConfigOptionFunc {
	return func(c *Config) {
		c.identityUrl = identityUrl
	}
}

// WithReputationUrl specifies the remote reputation service
func WithReputationUrl(reputationUrl string) ConfigOptionFunc {
	return func(c *Config) {
		c.reputationUrl = reputationUrl
	}
}

// WithRedisAddr caches remote gate answers in redis
func WithRedisAddr(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.redisAddr = addr
	}
}

// WithCacheTTL specifies how long cached gate answers are kept
func WithCacheTTL(ttl time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.cacheTTL = ttl
	}
}

// WithNats forwards fund events to the NATS server at url, on subjects
// beginning with prefix
func WithNats(url string, prefix string) ConfigOptionFunc {
	return func(c *Config) {
		c.natsUrl = url
		c.natsPrefix = prefix
	}
}

// WithArchive uploads the event journal to a gs:// or s3:// URL every
// interval. A zero interval only archives on shutdown
func WithArchive(archiveUrl string, interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.archiveUrl = archiveUrl
		c.archiveInterval = interval
	}
}

// WithArchiveRegion overrides the AWS region for s3:// archives
func WithArchiveRegion(region string) ConfigOptionFunc {
	return func(c *Config) {
		c.archiveRegion = region
	}
}

// WithArchiveCredentialsFile specifies a service account file for gs:// archives
func WithArchiveCredentialsFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.archiveCredentialsFile = path
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
