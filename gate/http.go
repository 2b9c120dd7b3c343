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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

const (
	DefaultHTTPTimeout = 5 * time.Second

	defaultBreakerTimeout  = 30 * time.Second
	defaultBreakerFailures = 5
)

// HTTPGate queries remote identity and reputation services. Each service
// sits behind its own circuit breaker
type HTTPGate struct {
	identityURL       string
	reputationURL     string
	client            *http.Client
	logger            *slog.Logger
	metrics           *gateMetrics
	identityBreaker   *gobreaker.CircuitBreaker
	reputationBreaker *gobreaker.CircuitBreaker
	breakerTimeout    time.Duration
	breakerFailures   uint32
}

type HTTPGateOptionFunc func(*HTTPGate)

// WithHTTPClient specifies the HTTP client used for lookups
func WithHTTPClient(client *http.Client) HTTPGateOptionFunc {
	return func(g *HTTPGate) {
		g.client = client
	}
}

// WithHTTPLogger specifies the logger object to use for logging messages
func WithHTTPLogger(logger *slog.Logger) HTTPGateOptionFunc {
	return func(g *HTTPGate) {
		g.logger = logger
	}
}

// WithHTTPPromRegistry specifies the prometheus registry to use for metrics
func WithHTTPPromRegistry(
	promRegistry prometheus.Registerer,
) HTTPGateOptionFunc {
	return func(g *HTTPGate) {
		g.metrics = newGateMetrics(promRegistry, "http")
	}
}

// WithBreaker sets how many consecutive failures open a breaker and how long
// it stays open
func WithBreaker(failures uint32, timeout time.Duration) HTTPGateOptionFunc {
	return func(g *HTTPGate) {
		g.breakerFailures = failures
		g.breakerTimeout = timeout
	}
}

// NewHTTPGate creates a gate backed by remote services. Either URL may be
// empty, in which case that lookup always succeeds with an empty answer
func NewHTTPGate(
	identityURL string,
	reputationURL string,
	opts ...HTTPGateOptionFunc,
) *HTTPGate {
	g := &HTTPGate{
		identityURL:     strings.TrimRight(identityURL, "/"),
		reputationURL:   strings.TrimRight(reputationURL, "/"),
		breakerTimeout:  defaultBreakerTimeout,
		breakerFailures: defaultBreakerFailures,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	g.logger = g.logger.With("component", "gate")
	g.identityBreaker = g.newBreaker("identity")
	g.reputationBreaker = g.newBreaker("reputation")
	return g
}

func (g *HTTPGate) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: g.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= g.breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn(
				fmt.Sprintf("%s breaker: %s -> %s", name, from, to),
			)
		},
	})
}

// AgentName fetches GET <identity>/agents/<account>. A 404 means the account
// is not registered
func (g *HTTPGate) AgentName(
	ctx context.Context,
	account fund.Account,
) (string, error) {
	if g.identityURL == "" {
		return "", nil
	}
	var resp struct {
		Name string `json:"name"`
	}
	found, err := g.fetch(
		ctx,
		g.identityBreaker,
		g.identityURL+"/agents/"+url.PathEscape(string(account)),
		&resp,
	)
	if err != nil {
		g.metrics.observe("identity", resultError)
		return "", err
	}
	g.metrics.observe("identity", lookupResult(found))
	return resp.Name, nil
}

// LifetimeInfo fetches GET <reputation>/agents/<account>/lifetime. A 404
// yields a zero record
func (g *HTTPGate) LifetimeInfo(
	ctx context.Context,
	account fund.Account,
) (fund.LifetimeInfo, error) {
	if g.reputationURL == "" {
		return fund.LifetimeInfo{}, nil
	}
	var resp Agent
	found, err := g.fetch(
		ctx,
		g.reputationBreaker,
		g.reputationURL+"/agents/"+url.PathEscape(string(account))+"/lifetime",
		&resp,
	)
	if err != nil {
		g.metrics.observe("reputation", resultError)
		return fund.LifetimeInfo{}, err
	}
	g.metrics.observe("reputation", lookupResult(found))
	return resp.LifetimeInfo(), nil
}

func (g *HTTPGate) fetch(
	ctx context.Context,
	breaker *gobreaker.CircuitBreaker,
	reqUrl string,
	dest any,
) (bool, error) {
	ret, err := breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
		if err != nil {
			return false, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := g.client.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resp.StatusCode != http.StatusOK:
			return false, fmt.Errorf(
				"%w: %s: %d",
				ErrUnexpectedStatus,
				reqUrl,
				resp.StatusCode,
			)
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return false, fmt.Errorf("decode %s: %w", reqUrl, err)
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	found, _ := ret.(bool)
	return found, nil
}
