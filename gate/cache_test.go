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
	"testing"
	"time"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGate struct {
	names map[fund.Account]string
	info  map[fund.Account]fund.LifetimeInfo
	calls int
	err   error
}

func (g *countingGate) AgentName(_ context.Context, account fund.Account) (string, error) {
	g.calls++
	return g.names[account], g.err
}

func (g *countingGate) LifetimeInfo(_ context.Context, account fund.Account) (fund.LifetimeInfo, error) {
	g.calls++
	return g.info[account], g.err
}

func TestCachedGateIdentity(t *testing.T) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	next := &countingGate{names: map[fund.Account]string{"alice": "Alice"}}
	g := NewCachedGate(next, client, WithCacheTTL(time.Minute))
	ctx := context.Background()

	mock.ExpectGet(identityKey("alice")).RedisNil()
	mock.ExpectSet(identityKey("alice"), "Alice", time.Minute).SetVal("OK")
	name, err := g.AgentName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	mock.ExpectGet(identityKey("alice")).SetVal("Alice")
	name, err = g.AgentName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, 1, next.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateReputation(t *testing.T) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	info := fund.LifetimeInfo{TotalHeartbeats: 3, LifetimeScore: 250}
	next := &countingGate{info: map[fund.Account]fund.LifetimeInfo{"alice": info}}
	g := NewCachedGate(next, client)
	ctx := context.Background()
	infoJson, err := json.Marshal(info)
	require.NoError(t, err)

	mock.ExpectGet(reputationKey("alice")).RedisNil()
	mock.ExpectSet(reputationKey("alice"), string(infoJson), DefaultCacheTTL).SetVal("OK")
	got, err := g.LifetimeInfo(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, info, got)

	mock.ExpectGet(reputationKey("alice")).SetVal(string(infoJson))
	got, err = g.LifetimeInfo(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, info, got)
	assert.Equal(t, 1, next.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateRedisDown(t *testing.T) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	next := &countingGate{names: map[fund.Account]string{"alice": "Alice"}}
	g := NewCachedGate(next, client)
	down := errors.New("connection refused")

	mock.ExpectGet(identityKey("alice")).SetErr(down)
	mock.ExpectSet(identityKey("alice"), "Alice", DefaultCacheTTL).SetErr(down)
	name, err := g.AgentName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateDoesNotCacheErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	next := &countingGate{err: errors.New("upstream failed")}
	g := NewCachedGate(next, client)

	mock.ExpectGet(identityKey("alice")).RedisNil()
	_, err := g.AgentName(context.Background(), "alice")
	require.Error(t, err)

	mock.ExpectDel(identityKey("alice"), reputationKey("alice")).SetVal(0)
	require.NoError(t, g.Invalidate(context.Background(), "alice"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGateSeesNewRegistration(t *testing.T) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	next := &countingGate{names: map[fund.Account]string{}}
	g := NewCachedGate(next, client)
	ctx := context.Background()

	mock.ExpectGet(identityKey("carol")).RedisNil()
	name, err := g.AgentName(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, name)

	next.names["carol"] = "Carol"
	mock.ExpectGet(identityKey("carol")).RedisNil()
	mock.ExpectSet(identityKey("carol"), "Carol", DefaultCacheTTL).SetVal("OK")
	name, err = g.AgentName(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", name)
	assert.Equal(t, 2, next.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}
