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

package gate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultCacheTTL = 5 * time.Minute

	cacheKeyPrefix = "treasury:gate:"
)

// CachedGate memoizes another gate's answers in redis. Redis failures are
// logged and the lookup goes to the wrapped gate
type CachedGate struct {
	next    Gate
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *gateMetrics
}

type CachedGateOptionFunc func(*CachedGate)

// WithCacheTTL specifies how long answers are kept
func WithCacheTTL(ttl time.Duration) CachedGateOptionFunc {
	return func(g *CachedGate) {
		g.ttl = ttl
	}
}

// WithCacheLogger specifies the logger object to use for logging messages
func WithCacheLogger(logger *slog.Logger) CachedGateOptionFunc {
	return func(g *CachedGate) {
		g.logger = logger
	}
}

// WithCachePromRegistry specifies the prometheus registry to use for metrics
func WithCachePromRegistry(
	promRegistry prometheus.Registerer,
) CachedGateOptionFunc {
	return func(g *CachedGate) {
		g.metrics = newGateMetrics(promRegistry, "cache")
	}
}

func NewCachedGate(
	next Gate,
	client *redis.Client,
	opts ...CachedGateOptionFunc,
) *CachedGate {
	g := &CachedGate{
		next:   next,
		client: client,
		ttl:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	g.logger = g.logger.With("component", "gate")
	return g
}

func identityKey(account fund.Account) string {
	return cacheKeyPrefix + "identity:" + string(account)
}

func reputationKey(account fund.Account) string {
	return cacheKeyPrefix + "reputation:" + string(account)
}

// AgentName returns the cached name, asking the wrapped gate on a miss.
// Unregistered accounts are not cached, so a new registration is seen on the
// next lookup
func (g *CachedGate) AgentName(
	ctx context.Context,
	account fund.Account,
) (string, error) {
	key := identityKey(account)
	val, err := g.client.Get(ctx, key).Result()
	if err == nil {
		g.metrics.observe("identity", resultHit)
		return val, nil
	}
	g.cacheError(err, key)
	g.metrics.observe("identity", resultMiss)
	name, err := g.next.AgentName(ctx, account)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", nil
	}
	if err := g.client.Set(ctx, key, name, g.ttl).Err(); err != nil {
		g.cacheError(err, key)
	}
	return name, nil
}

// LifetimeInfo returns the cached record, asking the wrapped gate on a miss
func (g *CachedGate) LifetimeInfo(
	ctx context.Context,
	account fund.Account,
) (fund.LifetimeInfo, error) {
	key := reputationKey(account)
	val, err := g.client.Get(ctx, key).Bytes()
	if err == nil {
		var info fund.LifetimeInfo
		if err := json.Unmarshal(val, &info); err == nil {
			g.metrics.observe("reputation", resultHit)
			return info, nil
		}
		g.logger.Warn("discarding malformed cache entry", "key", key)
	} else {
		g.cacheError(err, key)
	}
	g.metrics.observe("reputation", resultMiss)
	info, err := g.next.LifetimeInfo(ctx, account)
	if err != nil {
		return fund.LifetimeInfo{}, err
	}
	infoJson, err := json.Marshal(info)
	if err != nil {
		return info, nil
	}
	if err := g.client.Set(ctx, key, string(infoJson), g.ttl).Err(); err != nil {
		g.cacheError(err, key)
	}
	return info, nil
}

// Invalidate drops any cached answers for the account
func (g *CachedGate) Invalidate(ctx context.Context, account fund.Account) error {
	return g.client.Del(ctx, identityKey(account), reputationKey(account)).Err()
}

func (g *CachedGate) cacheError(err error, key string) {
	if errors.Is(err, redis.Nil) {
		return
	}
	g.logger.Warn("gate cache unavailable", "key", key, "error", err)
}
