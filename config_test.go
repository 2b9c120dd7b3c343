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
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, DefaultListenAddress, cfg.listenAddress)
	assert.Equal(t, DefaultArchiveInterval, cfg.archiveInterval)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Empty(t, cfg.dataDir)
	assert.False(t, cfg.tracing)
}

func TestConfigOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := NewConfig(
		WithLogger(logger),
		WithDatabasePath("/tmp/treasury"),
		WithListenAddress("127.0.0.1:9000"),
		WithPeriodLength(3600),
		WithRateLimit(10, 20),
		WithFundParams(fund.FundParams{QuorumPercent: 60}),
		WithOpenExecution(true),
		WithIdentityUrl("http://identity"),
		WithReputationUrl("http://reputation"),
		WithRedisAddr("localhost:6379"),
		WithCacheTTL(time.Minute),
		WithNats("nats://localhost:4222", "fund"),
		WithArchive("s3://bucket/journal", 10*time.Minute),
		WithArchiveRegion("us-east-2"),
		WithArchiveCredentialsFile("creds.json"),
		WithTracing(true),
		WithTracingStdout(true),
		WithShutdownTimeout(5*time.Second),
		WithJournalCacheSizes(8<<20, 4<<20),
		WithJournalGcInterval(time.Minute),
	)
	assert.Same(t, logger, cfg.logger)
	assert.Equal(t, "/tmp/treasury", cfg.dataDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.listenAddress)
	assert.Equal(t, uint64(3600), cfg.periodLength)
	assert.InDelta(t, 10.0, cfg.rateLimit, 0)
	assert.Equal(t, 20, cfg.rateBurst)
	assert.Equal(t, uint64(60), cfg.fundParams.QuorumPercent)
	assert.True(t, cfg.openExecution)
	assert.Equal(t, "http://identity", cfg.identityUrl)
	assert.Equal(t, "http://reputation", cfg.reputationUrl)
	assert.Equal(t, "localhost:6379", cfg.redisAddr)
	assert.Equal(t, time.Minute, cfg.cacheTTL)
	assert.Equal(t, "nats://localhost:4222", cfg.natsUrl)
	assert.Equal(t, "fund", cfg.natsPrefix)
	assert.Equal(t, "s3://bucket/journal", cfg.archiveUrl)
	assert.Equal(t, 10*time.Minute, cfg.archiveInterval)
	assert.Equal(t, "us-east-2", cfg.archiveRegion)
	assert.Equal(t, "creds.json", cfg.archiveCredentialsFile)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
	assert.Equal(t, uint64(8<<20), cfg.journalBlockCache)
	assert.Equal(t, uint64(4<<20), cfg.journalIndexCache)
	assert.Equal(t, time.Minute, cfg.journalGcInterval)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOptionFunc
		wantErr string
	}{
		{
			name: "defaults",
		},
		{
			name:    "empty listen address",
			opts:    []ConfigOptionFunc{WithListenAddress("")},
			wantErr: "no listen address",
		},
		{
			name: "registry with remote gate",
			opts: []ConfigOptionFunc{
				WithRegistryFile("registry.yaml"),
				WithIdentityUrl("http://identity"),
			},
			wantErr: "registry file cannot be combined",
		},
		{
			name:    "redis without remote gate",
			opts:    []ConfigOptionFunc{WithRedisAddr("localhost:6379")},
			wantErr: "redis cache requires",
		},
		{
			name: "redis with reputation service",
			opts: []ConfigOptionFunc{
				WithReputationUrl("http://reputation"),
				WithRedisAddr("localhost:6379"),
			},
		},
		{
			name:    "unsupported archive scheme",
			opts:    []ConfigOptionFunc{WithArchive("ftp://host/path", time.Hour)},
			wantErr: "invalid archive URL",
		},
		{
			name:    "negative archive interval",
			opts:    []ConfigOptionFunc{WithArchive("gs://bucket", -time.Second)},
			wantErr: "invalid archive interval",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(NewConfig(tt.opts...))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, n)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, n)
			require.NoError(t, n.Stop())
		})
	}
}
