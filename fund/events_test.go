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

package fund

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/blinklabs-io/treasury/event"
	"github.com/blinklabs-io/treasury/internal/test/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingSubscriber receives events synchronously in publish order
type recordingSubscriber struct {
	ch chan event.Event
}

func (r *recordingSubscriber) Deliver(evt event.Event) error {
	r.ch <- evt
	return nil
}

func (r *recordingSubscriber) Close() {}

func collectEvents(eb *event.EventBus) <-chan event.Event {
	sub := &recordingSubscriber{ch: make(chan event.Event, 100)}
	for _, evtType := range event.FundEventTypes {
		eb.RegisterSubscriber(evtType, sub)
	}
	return sub.ch
}

func nextEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	return testutil.RequireReceive(t, ch, 2*time.Second, "waiting for event")
}

func TestOperationsEmitEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	events := collectEvents(eb)
	h := newTestHost(t, FundConfig{EventBus: eb})

	h.mustDeposit("alice", 1000)
	evt := nextEvent(t, events)
	require.Equal(t, event.DepositEventType, evt.Type)
	deposit := evt.Data.(event.DepositEvent)
	assert.Equal(t, "alice", deposit.Account)
	assert.Equal(t, "1000", deposit.Shares.String())

	id := h.mustSubmit("alice", 100)
	evt = nextEvent(t, events)
	require.Equal(t, event.ProposalCreatedEventType, evt.Type)
	created := evt.Data.(event.ProposalCreatedEvent)
	assert.Equal(t, id, created.ProposalId)
	assert.Equal(t, uint64(42), created.ExternalRef)

	h.passProposal(id, "alice")
	evt = nextEvent(t, events)
	require.Equal(t, event.VoteEventType, evt.Type)
	assert.True(t, evt.Data.(event.VoteEvent).Support)
	evt = nextEvent(t, events)
	require.Equal(t, event.ProposalPassedEventType, evt.Type)
	assert.Equal(t, h.now, evt.Data.(event.ProposalPassedEvent).PassedAt)

	_, err := h.withdraw("alice", 500)
	require.NoError(t, err)
	evt = nextEvent(t, events)
	require.Equal(t, event.WithdrawEventType, evt.Type)
	evt = nextEvent(t, events)
	require.Equal(t, event.RageQuitEventType, evt.Type)
	rageQuit := evt.Data.(event.RageQuitEvent)
	assert.Equal(t, id, rageQuit.ProposalId)
	assert.Equal(t, "1000", rageQuit.Weight.String())

	h.now += testTimelock + 1
	_, err = h.execute("alice", id)
	require.ErrorIs(t, err, ErrQuorumLost)
	evt = nextEvent(t, events)
	require.Equal(t, event.ProposalFailedEventType, evt.Type)
	assert.Equal(t, "quorum-lost", evt.Data.(event.ProposalFailedEvent).Reason)
}

func TestRejectedOperationEmitsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	events := collectEvents(eb)
	h := newTestHost(t, FundConfig{EventBus: eb})
	_, err := h.deposit("alice", 0)
	require.Error(t, err)
	_, err = h.submit("alice", 1)
	require.Error(t, err)
	testutil.RequireNoReceive(t, events, 100*time.Millisecond, "rejected operation")
}

func TestFundMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestHost(t, FundConfig{PromRegistry: reg})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 500)
	_, err := h.submit("alice", 1_000_000)
	require.Error(t, err)
	id := h.mustSubmit("alice", 10)
	require.NoError(t, h.vote("alice", id, true))

	m := h.fund.metrics
	assert.Equal(t, float64(2), promtestutil.ToFloat64(m.deposits))
	assert.Equal(t, float64(2), promtestutil.ToFloat64(m.members))
	assert.Equal(t, float64(3000), promtestutil.ToFloat64(m.totalShares))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.proposals))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.votes))
	assert.Equal(
		t,
		float64(1),
		promtestutil.ToFloat64(
			m.operationErrors.WithLabelValues("submit proposal", "guardrail"),
		),
	)
}

func TestStalledSubscriberDoesNotBlockOperations(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, deposits := eb.Subscribe(event.DepositEventType)
	h := newTestHost(t, FundConfig{EventBus: eb})
	// Fill the subscriber's buffer without reading it
	for range event.EventQueueSize {
		h.mustDeposit("alice", 1000)
	}

	stalledEnv := h.env("stalled")
	h.value.Add(h.value, big.NewInt(1000))
	stalledDone := make(chan struct{})
	go func() {
		defer close(stalledDone)
		_, err := h.fund.Deposit(context.Background(), stalledEnv, big.NewInt(1000))
		assert.NoError(t, err)
	}()
	require.Eventually(
		t,
		func() bool { return h.fund.IsMember("stalled") },
		2*time.Second,
		10*time.Millisecond,
	)

	lateEnv := h.env("late")
	lateDone := make(chan error, 1)
	go func() {
		_, err := h.fund.Deposit(context.Background(), lateEnv, big.NewInt(1000))
		lateDone <- err
	}()
	err := testutil.RequireReceive[error](
		t,
		lateDone,
		2*time.Second,
		"deposit behind stalled subscriber",
	)
	require.NoError(t, err)
	assert.True(t, h.fund.IsMember("late"))

	// Draining the subscriber releases the stalled publisher, which also
	// delivers the queued event for the later deposit
	var accounts []string
	for range event.EventQueueSize + 2 {
		evt := nextEvent(t, deposits)
		accounts = append(accounts, evt.Data.(event.DepositEvent).Account)
	}
	testutil.RequireClosed(t, stalledDone, 2*time.Second, "stalled deposit")
	assert.Equal(t, []string{"stalled", "late"}, accounts[event.EventQueueSize:])
}
