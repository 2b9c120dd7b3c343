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

package config

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "treasury.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultPeriodLength    = 86400
	DefaultCacheTTL        = "5m"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath    string `yaml:"databasePath"    split_words:"true"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"     split_words:"true"`
	PeriodLength    uint64 `yaml:"periodLength"    split_words:"true"`
	// Requests per second accepted by the API, 0 disables limiting
	RateLimit float64       `yaml:"rateLimit" split_words:"true"`
	RateBurst int           `yaml:"rateBurst" split_words:"true"`
	Fund      FundConfig    `yaml:"fund"`
	Gate      GateConfig    `yaml:"gate"`
	Nats      NatsConfig    `yaml:"nats"`
	Tracing   TracingConfig `yaml:"tracing"`
	Archive   ArchiveConfig `yaml:"archive"`
	Journal   JournalConfig `yaml:"journal"`
}

// FundConfig holds the governance parameters. Big amounts are decimal strings
type FundConfig struct {
	MinDeposit     string `yaml:"minDeposit"     split_words:"true"`
	MinReputation  uint64 `yaml:"minReputation"  split_words:"true"`
	VotingPeriod   uint64 `yaml:"votingPeriod"   split_words:"true"`
	TimelockPeriod uint64 `yaml:"timelockPeriod" split_words:"true"`
	QuorumPercent  uint64 `yaml:"quorumPercent"  split_words:"true"`
	ProposalCapBps uint64 `yaml:"proposalCapBps" split_words:"true"`
	PeriodCapBps   uint64 `yaml:"periodCapBps"   split_words:"true"`
	DeadShares     string `yaml:"deadShares"     split_words:"true"`
	OpenExecution  bool   `yaml:"openExecution"  split_words:"true"`
}

type GateConfig struct {
	RegistryFile  string `yaml:"registryFile"  split_words:"true"`
	IdentityUrl   string `yaml:"identityUrl"   split_words:"true"`
	ReputationUrl string `yaml:"reputationUrl" split_words:"true"`
	RedisAddr     string `yaml:"redisAddr"     split_words:"true"`
	CacheTTL      string `yaml:"cacheTTL"      envconfig:"CACHE_TTL"`
}

type NatsConfig struct {
	Url    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	Stdout  bool `yaml:"stdout"`
}

// JournalConfig sizes the on-disk event journal. Zero keeps the defaults
type JournalConfig struct {
	BlockCacheSize uint64 `yaml:"blockCacheSize" split_words:"true"`
	IndexCacheSize uint64 `yaml:"indexCacheSize" split_words:"true"`
	GcInterval     string `yaml:"gcInterval"     split_words:"true"`
}

type ArchiveConfig struct {
	Url             string `yaml:"url"`
	Interval        string `yaml:"interval"`
	Region          string `yaml:"region"`
	CredentialsFile string `yaml:"credentialsFile" split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    ".treasury",
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
		PeriodLength:    DefaultPeriodLength,
		RateLimit:       50,
		RateBurst:       100,
		Fund: FundConfig{
			MinDeposit:     "1",
			VotingPeriod:   fund.DefaultVotingPeriod,
			TimelockPeriod: fund.DefaultTimelockPeriod,
			QuorumPercent:  fund.DefaultQuorumPercent,
			ProposalCapBps: fund.DefaultProposalCapBps,
			PeriodCapBps:   fund.DefaultPeriodCapBps,
			DeadShares:     "1000",
		},
		Gate: GateConfig{
			CacheTTL: DefaultCacheTTL,
		},
		Nats: NatsConfig{
			Prefix: "treasury",
		},
	}
}

var globalConfig = defaultConfig()

// LoadConfig overlays the config file and then the environment onto the
// defaults. With no file given, ~/.treasury/treasury.yaml and
// /etc/treasury/treasury.yaml are tried in turn
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".treasury", "treasury.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/treasury/treasury.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		// A config section takes precedence over top-level keys. Either way
		// values are overlaid onto the existing defaults
		if tempCfg.Config.Kind != 0 {
			if err := tempCfg.Config.Decode(globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("treasury", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks settings that cannot be checked by parsing alone
func (c *Config) Validate() error {
	if c.PeriodLength == 0 {
		return errors.New("periodLength must be greater than zero")
	}
	if _, err := c.Fund.Params(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	if c.Gate.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Gate.CacheTTL); err != nil {
			return fmt.Errorf("invalid gate cacheTTL: %w", err)
		}
	}
	if c.Archive.Interval != "" {
		if _, err := time.ParseDuration(c.Archive.Interval); err != nil {
			return fmt.Errorf("invalid archive interval: %w", err)
		}
	}
	return nil
}

// Params converts the configured values into engine parameters. Zero values
// are left for the engine to default
func (f FundConfig) Params() (fund.FundParams, error) {
	params := fund.FundParams{
		MinReputation:  f.MinReputation,
		VotingPeriod:   f.VotingPeriod,
		TimelockPeriod: f.TimelockPeriod,
		QuorumPercent:  f.QuorumPercent,
		ProposalCapBps: f.ProposalCapBps,
		PeriodCapBps:   f.PeriodCapBps,
	}
	var err error
	if params.MinDeposit, err = parseAmount("minDeposit", f.MinDeposit); err != nil {
		return params, err
	}
	if params.DeadShares, err = parseAmount("deadShares", f.DeadShares); err != nil {
		return params, err
	}
	return params, nil
}

func parseAmount(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	ret, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", name, value)
	}
	return ret, nil
}
