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
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/blinklabs-io/treasury/internal/test/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistry = `agents:
  alice:
    name: Alice
    lifetime_score: 900
  bob:
    name: Bob
    lifetime_score: 10
`

func startNode(t *testing.T, opts ...ConfigOptionFunc) (*Node, chan error) {
	t.Helper()
	opts = append(
		[]ConfigOptionFunc{
			WithListenAddress("127.0.0.1:0"),
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithShutdownTimeout(5 * time.Second),
		},
		opts...,
	)
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(context.Background())
	}()
	select {
	case <-n.Ready():
	case err := <-errCh:
		require.FailNow(t, "node exited during startup", "error: %v", err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "node did not become ready")
	}
	return n, errCh
}

func waitRun(t *testing.T, errCh chan error) {
	t.Helper()
	err := testutil.RequireReceive(t, errCh, 10*time.Second, "Run did not return after Stop")
	require.NoError(t, err)
}

func TestNodeRunStop(t *testing.T) {
	n, errCh := startNode(t)
	require.NotNil(t, n.Fund())
	assert.Equal(t, 0, n.Fund().TotalShares().Sign())
	require.NoError(t, n.Stop())
	waitRun(t, errCh)
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

func TestNodeContextCancel(t *testing.T) {
	n, err := New(NewConfig(WithListenAddress("127.0.0.1:0")))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	testutil.RequireClosed(t, n.Ready(), 10*time.Second, "node did not become ready")
	cancel()
	waitRun(t, errCh)
}

func TestNodeRegistryGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o600))
	n, errCh := startNode(
		t,
		WithRegistryFile(path),
		WithFundParams(fund.FundParams{MinReputation: 500}),
	)
	defer func() {
		require.NoError(t, n.Stop())
		waitRun(t, errCh)
	}()

	ctx := context.Background()
	env := func(caller fund.Account) fund.Env {
		return fund.Env{
			Caller:        caller,
			Timestamp:     1000,
			TreasuryValue: big.NewInt(0),
		}
	}
	minted, err := n.Fund().Deposit(ctx, env("alice"), big.NewInt(10000))
	require.NoError(t, err)
	assert.Equal(t, 1, minted.Sign())

	_, err = n.Fund().Deposit(ctx, env("bob"), big.NewInt(10000))
	require.Error(t, err)
	assert.Equal(t, fund.KindAuthorization, fund.KindOf(err))

	_, err = n.Fund().Deposit(ctx, env("carol"), big.NewInt(10000))
	require.Error(t, err)
	assert.Equal(t, fund.KindAuthorization, fund.KindOf(err))
}

func TestNodeReputationOnlyGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/agents/alice/lifetime":
				_, _ = w.Write([]byte(`{"lifetime_score": 900}`))
			case "/agents/bob/lifetime":
				_, _ = w.Write([]byte(`{"lifetime_score": 10}`))
			default:
				http.NotFound(w, r)
			}
		},
	))
	defer srv.Close()
	n, errCh := startNode(
		t,
		WithReputationUrl(srv.URL),
		WithFundParams(fund.FundParams{MinReputation: 500}),
	)
	defer func() {
		require.NoError(t, n.Stop())
		waitRun(t, errCh)
	}()

	ctx := context.Background()
	// No identity service is configured, so registration is not required
	minted, err := n.Fund().Deposit(
		ctx,
		fund.Env{Caller: "alice", Timestamp: 1000, TreasuryValue: big.NewInt(0)},
		big.NewInt(10000),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, minted.Sign())

	_, err = n.Fund().Deposit(
		ctx,
		fund.Env{Caller: "bob", Timestamp: 1000, TreasuryValue: big.NewInt(10000)},
		big.NewInt(10000),
	)
	require.ErrorIs(t, err, fund.ErrInsufficientReputation)
}

func TestNodePersistence(t *testing.T) {
	dataDir := t.TempDir()
	n, errCh := startNode(t, WithDatabasePath(dataDir))
	_, err := n.Fund().Deposit(
		context.Background(),
		fund.Env{Caller: "alice", Timestamp: 1000, TreasuryValue: big.NewInt(0)},
		big.NewInt(10000),
	)
	require.NoError(t, err)
	shares := n.Fund().TotalShares()
	require.NoError(t, n.Stop())
	waitRun(t, errCh)

	n, errCh = startNode(t, WithDatabasePath(dataDir))
	assert.Equal(t, shares.String(), n.Fund().TotalShares().String())
	require.NoError(t, n.Stop())
	waitRun(t, errCh)
}

func TestNodeListenFailure(t *testing.T) {
	n, err := New(NewConfig(WithListenAddress("127.0.0.1:99999")))
	require.NoError(t, err)
	err = n.Run(context.Background())
	require.Error(t, err)
	require.NoError(t, n.Stop())
}
