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
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testVotingPeriod = 100
	testTimelock     = 50
	testStart        = 1_000_000
)

// testHost plays the hosting environment: it owns the clock and the
// treasury balance and moves value when operations succeed
type testHost struct {
	t      *testing.T
	fund   *Fund
	value  *big.Int
	now    uint64
	period uint64
}

func newTestHost(t *testing.T, cfg FundConfig) *testHost {
	t.Helper()
	if cfg.Params.VotingPeriod == 0 {
		cfg.Params.VotingPeriod = testVotingPeriod
	}
	if cfg.Params.TimelockPeriod == 0 {
		cfg.Params.TimelockPeriod = testTimelock
	}
	f, err := NewFund(context.Background(), cfg)
	require.NoError(t, err)
	return &testHost{
		t:     t,
		fund:  f,
		value: new(big.Int),
		now:   testStart,
	}
}

func (h *testHost) env(caller string) Env {
	return Env{
		Caller:        Account(caller),
		Timestamp:     h.now,
		Period:        h.period,
		TreasuryValue: new(big.Int).Set(h.value),
	}
}

func (h *testHost) deposit(caller string, amount int64) (*big.Int, error) {
	minted, err := h.fund.Deposit(
		context.Background(),
		h.env(caller),
		big.NewInt(amount),
	)
	if err == nil {
		h.value.Add(h.value, big.NewInt(amount))
	}
	return minted, err
}

func (h *testHost) mustDeposit(caller string, amount int64) *big.Int {
	h.t.Helper()
	minted, err := h.deposit(caller, amount)
	require.NoError(h.t, err)
	return minted
}

func (h *testHost) withdraw(caller string, shares int64) (*big.Int, error) {
	payout, err := h.fund.Withdraw(
		context.Background(),
		h.env(caller),
		big.NewInt(shares),
	)
	if err == nil {
		h.value.Sub(h.value, payout)
	}
	return payout, err
}

func (h *testHost) submit(caller string, amount int64) (uint64, error) {
	return h.fund.SubmitProposal(
		context.Background(),
		h.env(caller),
		ProposalRequest{
			Description: "fund the thing",
			Receiver:    "receiver",
			Amount:      big.NewInt(amount),
			ExternalRef: 42,
		},
	)
}

func (h *testHost) mustSubmit(caller string, amount int64) uint64 {
	h.t.Helper()
	id, err := h.submit(caller, amount)
	require.NoError(h.t, err)
	return id
}

func (h *testHost) vote(caller string, id uint64, support bool) error {
	return h.fund.Vote(context.Background(), h.env(caller), id, support)
}

func (h *testHost) finalize(id uint64) (ProposalStatus, error) {
	return h.fund.FinalizeVoting(context.Background(), h.env("anyone"), id)
}

func (h *testHost) execute(caller string, id uint64) (*Transfer, error) {
	transfer, err := h.fund.ExecuteProposal(
		context.Background(),
		h.env(caller),
		id,
	)
	if err == nil {
		h.value.Sub(h.value, transfer.Amount)
	}
	return transfer, err
}

func (h *testHost) proposal(id uint64) *Proposal {
	h.t.Helper()
	p, err := h.fund.Proposal(id)
	require.NoError(h.t, err)
	return p
}

// passProposal votes yes with every given member and finalizes the proposal
func (h *testHost) passProposal(id uint64, voters ...string) {
	h.t.Helper()
	for _, voter := range voters {
		require.NoError(h.t, h.vote(voter, id, true))
	}
	h.now += testVotingPeriod + 1
	status, err := h.finalize(id)
	require.NoError(h.t, err)
	require.Equal(h.t, ProposalStatusPassed, status)
}

func assertConservation(t *testing.T, f *Fund) {
	t.Helper()
	f.mu.RLock()
	defer f.mu.RUnlock()
	expected := new(big.Int).Add(f.params.DeadShares, f.state.sumBalances())
	if f.state.totalShares.Sign() == 0 {
		expected = f.state.sumBalances()
	}
	assert.Equal(t, expected.String(), f.state.totalShares.String())
}

func assertReason(t *testing.T, err error, kind ErrorKind, reason error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, reason)
	assert.Equal(t, kind, KindOf(err), "unexpected kind for %v", err)
}

func TestFirstDepositMintsDeadShares(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	minted := h.mustDeposit("alice", 100)
	assert.Equal(t, "100", minted.String())
	assert.Equal(t, "1100", h.fund.TotalShares().String())
	assert.Equal(t, "100", h.fund.MemberShares("alice").String())
	assert.Equal(t, "100", h.fund.VotingShares().String())
	assert.True(t, h.fund.IsMember("alice"))
	assertConservation(t, h.fund)
}

func TestSecondDepositIsProportional(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	// 500 * 2000 / 1000
	minted := h.mustDeposit("bob", 500)
	assert.Equal(t, "1000", minted.String())
	assert.Equal(t, "3000", h.fund.TotalShares().String())
	assertConservation(t, h.fund)
	// Value grows without new shares, so the next depositor gets fewer
	h.value.Add(h.value, big.NewInt(1500))
	// 300 * 3000 / 3000
	minted = h.mustDeposit("carol", 300)
	assert.Equal(t, "300", minted.String())
	assertConservation(t, h.fund)
}

func TestDepositRejections(t *testing.T) {
	h := newTestHost(t, FundConfig{
		Params: FundParams{MinDeposit: big.NewInt(10)},
	})
	_, err := h.deposit("alice", 9)
	assertReason(t, err, KindValidation, ErrBelowMinimumDeposit)
	assert.Equal(t, "0", h.fund.TotalShares().String())

	h.mustDeposit("alice", 10)
	// Treasury drained externally while shares remain outstanding
	h.value.SetInt64(0)
	_, err = h.deposit("bob", 10)
	assertReason(t, err, KindArithmetic, ErrInsolvent)

	// Share price so high that a minimum deposit rounds to zero
	h.value.SetInt64(1_000_000)
	_, err = h.deposit("bob", 10)
	assertReason(t, err, KindArithmetic, ErrZeroSharesMinted)
	assert.False(t, h.fund.IsMember("bob"))
	assertConservation(t, h.fund)

	_, err = h.fund.Deposit(
		context.Background(),
		Env{Caller: "bob", Timestamp: h.now},
		big.NewInt(10),
	)
	assertReason(t, err, KindValidation, ErrMissingTreasury)
}

type testIdentity map[Account]string

func (i testIdentity) AgentName(_ context.Context, account Account) (string, error) {
	if name, ok := i["error"]; ok {
		return "", errors.New(name)
	}
	return i[account], nil
}

type testReputation map[Account]uint64

func (r testReputation) LifetimeInfo(_ context.Context, account Account) (LifetimeInfo, error) {
	return LifetimeInfo{TotalHeartbeats: 10, LifetimeScore: r[account]}, nil
}

func TestDepositGates(t *testing.T) {
	h := newTestHost(t, FundConfig{
		Identity:   testIdentity{"alice": "Alice", "bob": "Bob"},
		Reputation: testReputation{"alice": 700, "bob": 100},
		Params:     FundParams{MinReputation: 500},
	})
	_, err := h.deposit("mallory", 100)
	assertReason(t, err, KindAuthorization, ErrNotRegistered)
	_, err = h.deposit("bob", 100)
	assertReason(t, err, KindAuthorization, ErrInsufficientReputation)
	h.mustDeposit("alice", 100)

	failing := newTestHost(t, FundConfig{
		Identity: testIdentity{"error": "registry unavailable"},
	})
	_, err = failing.deposit("alice", 100)
	require.Error(t, err)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Contains(t, err.Error(), "registry unavailable")
}

func TestWithdraw(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 500)

	_, err := h.withdraw("alice", 0)
	assertReason(t, err, KindValidation, ErrZeroShares)
	_, err = h.withdraw("alice", 1001)
	assertReason(t, err, KindValidation, ErrInsufficientShares)
	_, err = h.withdraw("mallory", 1)
	assertReason(t, err, KindValidation, ErrInsufficientShares)
	// 1 * 1500 / 3000 truncates to zero
	_, err = h.withdraw("alice", 1)
	assertReason(t, err, KindArithmetic, ErrZeroPayout)

	// 400 * 1500 / 3000
	payout, err := h.withdraw("alice", 400)
	require.NoError(t, err)
	assert.Equal(t, "200", payout.String())
	assert.Equal(t, "600", h.fund.MemberShares("alice").String())
	assertConservation(t, h.fund)

	payout, err = h.withdraw("alice", 600)
	require.NoError(t, err)
	assert.Equal(t, "300", payout.String())
	assert.False(t, h.fund.IsMember("alice"))
	members := h.fund.Members(0, 10)
	require.Len(t, members, 1)
	assert.Equal(t, Account("bob"), members[0].Account)
	assertConservation(t, h.fund)
}

func TestDepositWithdrawRoundTripNeverProfits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 200 {
		h := newTestHost(t, FundConfig{})
		h.mustDeposit("seed", 1+rng.Int63n(1_000_000))
		h.value.Add(h.value, big.NewInt(rng.Int63n(1_000_000)))
		amount := 1 + rng.Int63n(1_000_000)
		minted, err := h.deposit("alice", amount)
		if err != nil {
			assert.Equal(t, KindArithmetic, KindOf(err))
			continue
		}
		payout, err := h.fund.Withdraw(
			context.Background(),
			h.env("alice"),
			minted,
		)
		if err != nil {
			assertReason(t, err, KindArithmetic, ErrZeroPayout)
			continue
		}
		assert.LessOrEqual(t, payout.Int64(), amount)
	}
}

func TestShareConservationUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	h := newTestHost(t, FundConfig{})
	accounts := []string{"a", "b", "c", "d", "e"}
	for range 500 {
		account := accounts[rng.Intn(len(accounts))]
		switch rng.Intn(3) {
		case 0, 1:
			_, _ = h.deposit(account, 1+rng.Int63n(10_000))
		case 2:
			bal := h.fund.MemberShares(Account(account))
			if bal.Sign() == 0 {
				continue
			}
			_, _ = h.withdraw(account, 1+rng.Int63n(bal.Int64()))
		}
		assertConservation(t, h.fund)
		assert.True(t, h.value.Sign() >= 0)
	}
}

func TestProposalCapBoundary(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 10_000)
	_, err := h.submit("alice", 1501)
	assertReason(t, err, KindGuardrail, ErrProposalCapExceeded)
	id := h.mustSubmit("alice", 1500)
	assert.Equal(t, uint64(1), id)

	_, err = h.submit("mallory", 1)
	assertReason(t, err, KindAuthorization, ErrNotMember)

	p := h.proposal(id)
	assert.Equal(t, ProposalStatusOpen, p.Status)
	assert.Equal(t, uint64(testStart), p.CreatedAt)
	assert.Equal(t, uint64(0), p.PassedAt)
	assert.Equal(t, uint64(42), p.ExternalRef)
	assert.Equal(t, "0", p.YesVotes.String())
}

func TestVoting(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 500)
	id := h.mustSubmit("alice", 100)

	require.NoError(t, h.vote("alice", id, true))
	assertReason(t, h.vote("alice", id, false), KindState, ErrAlreadyVoted)
	assertReason(t, h.vote("mallory", id, true), KindAuthorization, ErrNotMember)
	assertReason(t, h.vote("bob", 99, true), KindValidation, ErrProposalNotFound)

	// A later deposit does not change the frozen weight
	h.mustDeposit("alice", 1000)
	p := h.proposal(id)
	assert.Equal(t, "1000", p.YesVotes.String())

	h.now += testVotingPeriod
	require.NoError(t, h.vote("bob", id, false))
	assert.Equal(t, "1000", h.proposal(id).NoVotes.String())

	h.now++
	assertReason(t, h.vote("carol", id, true), KindAuthorization, ErrNotMember)
	h.mustDeposit("carol", 100)
	assertReason(t, h.vote("carol", id, true), KindState, ErrVotingClosed)

	recs, err := h.fund.VoteRecords(id)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Account("alice"), recs[0].Voter)
	assert.Equal(t, VoteYes, recs[0].Direction)
	assert.Equal(t, Account("bob"), recs[1].Voter)
	assert.True(t, h.fund.HasVoted(id, "bob"))
	assert.False(t, h.fund.HasVoted(id, "carol"))
}

func TestFinalizeVoting(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 200)
	passing := h.mustSubmit("alice", 100)
	failing := h.mustSubmit("alice", 100)
	require.NoError(t, h.vote("alice", passing, true))
	require.NoError(t, h.vote("bob", failing, true))

	_, err := h.finalize(passing)
	assertReason(t, err, KindState, ErrVotingOpen)

	h.now += testVotingPeriod + 1
	status, err := h.finalize(passing)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusPassed, status)
	assert.Equal(t, h.now, h.proposal(passing).PassedAt)

	// bob holds 400 of 1400 voting shares, below the 51% quorum
	status, err = h.finalize(failing)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusFailed, status)

	_, err = h.finalize(passing)
	assertReason(t, err, KindState, ErrInvalidTransition)
}

func TestQuorumBoundary(t *testing.T) {
	zero := big.NewInt(0)
	h := newTestHost(t, FundConfig{Params: FundParams{DeadShares: zero}})
	h.mustDeposit("alice", 51)
	h.mustDeposit("bob", 49)
	id := h.mustSubmit("alice", 1)
	require.NoError(t, h.vote("alice", id, true))
	require.NoError(t, h.vote("bob", id, false))
	h.now += testVotingPeriod + 1
	status, err := h.finalize(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusPassed, status, "yes exactly at quorum passes")

	tied := newTestHost(t, FundConfig{
		Params: FundParams{DeadShares: zero, QuorumPercent: 40},
	})
	tied.mustDeposit("alice", 50)
	tied.mustDeposit("bob", 50)
	id = tied.mustSubmit("alice", 1)
	require.NoError(t, tied.vote("alice", id, true))
	require.NoError(t, tied.vote("bob", id, false))
	tied.now += testVotingPeriod + 1
	status, err = tied.finalize(id)
	require.NoError(t, err)
	assert.Equal(t, ProposalStatusFailed, status, "a tie never passes")
}

func TestExecuteProposal(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 10_000)
	id := h.mustSubmit("alice", 1000)
	h.passProposal(id, "alice")

	_, err := h.execute("alice", id)
	assertReason(t, err, KindState, ErrTimelockActive)

	h.now += testTimelock + 1
	_, err = h.execute("mallory", id)
	assertReason(t, err, KindAuthorization, ErrNotMember)

	transfer, err := h.execute("alice", id)
	require.NoError(t, err)
	assert.Equal(t, Account("receiver"), transfer.Account)
	assert.Equal(t, "1000", transfer.Amount.String())
	assert.Equal(t, TransferDisbursement, transfer.Kind)
	assert.Equal(t, ProposalStatusExecuted, h.proposal(id).Status)
	assert.Equal(t, "1000", h.fund.PeriodSpent(0).String())
	assert.Equal(t, "9000", h.value.String())

	_, err = h.execute("alice", id)
	assertReason(t, err, KindState, ErrInvalidTransition)
}

func TestOpenExecution(t *testing.T) {
	h := newTestHost(t, FundConfig{OpenExecution: true})
	h.mustDeposit("alice", 10_000)
	id := h.mustSubmit("alice", 1000)
	h.passProposal(id, "alice")
	h.now += testTimelock + 1
	_, err := h.execute("keeper", id)
	require.NoError(t, err)
}

func TestRageQuitCausesQuorumLoss(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	// 100 * 2000 / 1000
	assert.Equal(t, "200", h.mustDeposit("bob", 100).String())
	id := h.mustSubmit("alice", 100)
	h.passProposal(id, "alice")

	h.now += 10
	payout, err := h.withdraw("alice", 1000)
	require.NoError(t, err)
	// 1000 * 1100 / 2200
	assert.Equal(t, "500", payout.String())
	p := h.proposal(id)
	assert.Equal(t, ProposalStatusPassed, p.Status)
	assert.Equal(t, "0", p.YesVotes.String())
	rec, ok := h.fund.VoteRecord(id, "alice")
	require.True(t, ok)
	assert.True(t, rec.Retracted)

	h.now += testTimelock
	_, err = h.execute("bob", id)
	assertReason(t, err, KindState, ErrQuorumLost)
	assert.Equal(t, ProposalStatusFailed, h.proposal(id).Status)
	assert.Equal(t, "600", h.value.String())
}

func TestRageQuitRetractsOnlyOnce(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 100)
	id := h.mustSubmit("alice", 100)
	require.NoError(t, h.vote("alice", id, true))
	require.NoError(t, h.vote("bob", id, true))
	assert.Equal(t, "1200", h.proposal(id).YesVotes.String())

	_, err := h.withdraw("alice", 100)
	require.NoError(t, err)
	assert.Equal(t, "200", h.proposal(id).YesVotes.String())
	_, err = h.withdraw("alice", 100)
	require.NoError(t, err)
	assert.Equal(t, "200", h.proposal(id).YesVotes.String())
	assertReason(t, h.vote("alice", id, true), KindState, ErrAlreadyVoted)
}

func TestRageQuitSkipsSettledProposals(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 100)

	expired := h.mustSubmit("alice", 10)
	require.NoError(t, h.vote("bob", expired, false))
	timelocked := h.mustSubmit("alice", 10)
	require.NoError(t, h.vote("bob", timelocked, false))
	require.NoError(t, h.vote("alice", timelocked, true))
	h.now += testVotingPeriod + 1
	_, err := h.finalize(timelocked)
	require.NoError(t, err)
	cancelled := h.mustSubmit("alice", 10)
	require.NoError(t, h.vote("bob", cancelled, false))
	require.NoError(t, h.fund.CancelProposal(context.Background(), h.env("alice"), cancelled))

	// The window of expired has closed and timelocked is still locked
	_, err = h.withdraw("bob", 50)
	require.NoError(t, err)
	assert.Equal(t, "200", h.proposal(expired).NoVotes.String())
	assert.Equal(t, "0", h.proposal(timelocked).NoVotes.String())
	assert.Equal(t, "200", h.proposal(cancelled).NoVotes.String())

	h.now += testTimelock + 1
	_, err = h.withdraw("alice", 100)
	require.NoError(t, err)
	assert.Equal(t, "1000", h.proposal(timelocked).YesVotes.String())
}

func TestPeriodCapAcrossProposals(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 10_000)
	first := h.mustSubmit("alice", 1500)
	second := h.mustSubmit("alice", 1500)
	require.NoError(t, h.vote("alice", first, true))
	h.passProposal(second, "alice")
	_, err := h.finalize(first)
	require.NoError(t, err)
	h.now += testTimelock + 1

	_, err = h.execute("alice", first)
	require.NoError(t, err)
	// 1500 + 1500 exceeds 25% of the remaining 8500
	_, err = h.execute("alice", second)
	assertReason(t, err, KindGuardrail, ErrPeriodCapExceeded)
	assert.Equal(t, ProposalStatusPassed, h.proposal(second).Status)
	assert.Equal(t, "1500", h.fund.PeriodSpent(0).String())

	h.period++
	_, err = h.execute("alice", second)
	require.NoError(t, err)
	assert.Equal(t, "1500", h.fund.PeriodSpent(1).String())
}

func TestExecuteRequiresTreasuryBalance(t *testing.T) {
	h := newTestHost(t, FundConfig{
		Params: FundParams{PeriodCapBps: 2 * BpsDenominator},
	})
	h.mustDeposit("alice", 10_000)
	id := h.mustSubmit("alice", 1500)
	h.passProposal(id, "alice")
	h.now += testTimelock + 1
	_, err := h.fund.ExecuteProposal(
		context.Background(),
		Env{
			Caller:        "alice",
			Timestamp:     h.now,
			TreasuryValue: big.NewInt(1499),
		},
		id,
	)
	assertReason(t, err, KindGuardrail, ErrInsufficientTreasury)
	assert.Equal(t, ProposalStatusPassed, h.proposal(id).Status)
}

func TestCancelAndExpire(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 500)
	cancelled := h.mustSubmit("alice", 10)
	expired := h.mustSubmit("alice", 10)
	ctx := context.Background()

	err := h.fund.CancelProposal(ctx, h.env("bob"), cancelled)
	assertReason(t, err, KindAuthorization, ErrNotProposer)
	require.NoError(t, h.fund.CancelProposal(ctx, h.env("alice"), cancelled))
	assert.Equal(t, ProposalStatusCancelled, h.proposal(cancelled).Status)
	err = h.fund.CancelProposal(ctx, h.env("alice"), cancelled)
	assertReason(t, err, KindState, ErrInvalidTransition)

	err = h.fund.ExpireProposal(ctx, h.env("stranger"), expired)
	assertReason(t, err, KindState, ErrVotingOpen)
	require.NoError(t, h.vote("alice", expired, true))
	h.now += testVotingPeriod + 1
	require.NoError(t, h.fund.ExpireProposal(ctx, h.env("stranger"), expired))
	assert.Equal(t, ProposalStatusFailed, h.proposal(expired).Status)
	err = h.fund.ExpireProposal(ctx, h.env("stranger"), cancelled)
	assertReason(t, err, KindState, ErrInvalidTransition)
}

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]ProposalStatus]bool{
		{ProposalStatusOpen, ProposalStatusPassed}:         true,
		{ProposalStatusOpen, ProposalStatusFailed}:         true,
		{ProposalStatusOpen, ProposalStatusCancelled}:      true,
		{ProposalStatusPassed, ProposalStatusExecutable}:   true,
		{ProposalStatusPassed, ProposalStatusFailed}:       true,
		{ProposalStatusExecutable, ProposalStatusExecuted}: true,
	}
	for from := range proposalStatusNames {
		for to := range proposalStatusNames {
			assert.Equal(
				t,
				allowed[[2]ProposalStatus{from, to}],
				CanTransition(from, to),
				"%s -> %s",
				from,
				to,
			)
		}
		if from.Terminal() {
			assert.Empty(t, proposalTransitions[from])
		}
	}
}

type failingStore struct {
	commits int
	fail    bool
}

func (s *failingStore) LoadFund(context.Context) (*State, error) {
	return NewState(), nil
}

func (s *failingStore) CommitFund(context.Context, *Delta) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.commits++
	return nil
}

func TestCommitFailureLeavesStateUntouched(t *testing.T) {
	store := &failingStore{}
	h := newTestHost(t, FundConfig{Store: store})
	h.mustDeposit("alice", 1000)
	assert.Equal(t, 1, store.commits)

	store.fail = true
	_, err := h.deposit("bob", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, h.fund.IsMember("bob"))
	assert.Equal(t, "2000", h.fund.TotalShares().String())

	_, err = h.submit("alice", 10)
	require.Error(t, err)
	assert.Empty(t, h.fund.Proposals(0, 10))
}

func TestRejectedOperationsDoNotCommit(t *testing.T) {
	store := &failingStore{}
	h := newTestHost(t, FundConfig{Store: store})
	h.mustDeposit("alice", 1000)
	_, _ = h.submit("alice", 1_000_000)
	_ = h.vote("alice", 1, true)
	_, _ = h.withdraw("alice", 5000)
	assert.Equal(t, 1, store.commits)
}

func TestProposalQueries(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	h.mustDeposit("alice", 10_000)
	for range 5 {
		h.mustSubmit("alice", 10)
	}
	assert.Len(t, h.fund.Proposals(0, 3), 3)
	assert.Equal(t, uint64(1), h.fund.Proposals(0, 3)[0].Id)
	page := h.fund.Proposals(4, 10)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(5), page[1].Id)
	assert.Empty(t, h.fund.Proposals(6, 10))
	assert.Empty(t, h.fund.Proposals(1, 0))

	require.NoError(t, h.vote("alice", 2, true))
	h.now += testVotingPeriod + 1
	_, err := h.finalize(2)
	require.NoError(t, err)
	// Only the passed proposal is active once the windows close
	active := h.fund.ActiveProposals(h.now)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(2), active[0].Id)
	assert.Len(t, h.fund.ActiveProposals(testStart), 5)

	stats := h.fund.Stats(h.value)
	assert.Equal(t, uint64(1), stats.MemberCount)
	assert.Equal(t, uint64(5), stats.ProposalCount)
	assert.Equal(t, "11000", stats.TotalShares.String())
	assert.Equal(t, "10000", stats.TreasuryValue.String())
}

func TestSharePriceAndMembers(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	assert.Equal(t, SharePriceScale.String(), h.fund.SharePrice(h.value).String())
	h.mustDeposit("alice", 1000)
	h.mustDeposit("bob", 1000)
	h.mustDeposit("carol", 1000)
	// 3000 * 1e18 / 6000
	assert.Equal(t, "500000000000000000", h.fund.SharePrice(h.value).String())

	members := h.fund.Members(1, 5)
	require.Len(t, members, 2)
	assert.Equal(t, Account("bob"), members[0].Account)
	assert.Equal(t, "2000", members[0].Shares.String())
	assert.Empty(t, h.fund.Members(3, 5))

	_, err := h.withdraw("bob", 2000)
	require.NoError(t, err)
	h.mustDeposit("bob", 10)
	members = h.fund.Members(0, 5)
	require.Len(t, members, 3)
	assert.Equal(t, Account("carol"), members[1].Account)
	assert.Equal(t, Account("bob"), members[2].Account)
}

func TestInvalidParams(t *testing.T) {
	_, err := NewFund(context.Background(), FundConfig{
		Params: FundParams{QuorumPercent: 101},
	})
	require.Error(t, err)
	_, err = NewFund(context.Background(), FundConfig{
		Params: FundParams{MinDeposit: big.NewInt(0)},
	})
	require.Error(t, err)
	params := DefaultParams()
	assert.Equal(t, uint64(51), params.QuorumPercent)
	assert.Equal(t, "1000", params.DeadShares.String())
}

func TestCaps(t *testing.T) {
	h := newTestHost(t, FundConfig{})
	proposalCap, periodCap := h.fund.Caps(big.NewInt(10_000))
	assert.Equal(t, "1500", proposalCap.String())
	assert.Equal(t, "2500", periodCap.String())
	proposalCap, periodCap = h.fund.Caps(nil)
	assert.Zero(t, proposalCap.Sign())
	assert.Zero(t, periodCap.Sign())
}
