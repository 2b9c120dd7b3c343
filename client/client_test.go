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

package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/treasury/api"
	"github.com/blinklabs-io/treasury/client"
	"github.com/blinklabs-io/treasury/database"
	"github.com/blinklabs-io/treasury/fund"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, now *atomic.Int64) *httptest.Server {
	t.Helper()
	db, err := database.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	params := fund.DefaultParams()
	params.VotingPeriod = 100
	params.TimelockPeriod = 10
	f, err := fund.NewFund(context.Background(), fund.FundConfig{
		Store:  db,
		Params: params,
	})
	require.NoError(t, err)
	a := api.New(
		api.APIConfig{Clock: func() time.Time { return time.Unix(now.Load(), 0) }},
		f,
		db,
		nil,
	)
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return server
}

func TestClientRoundTrip(t *testing.T) {
	var now atomic.Int64
	now.Store(1_700_000_000)
	server := newTestServer(t, &now)
	ctx := context.Background()
	alice := client.New(server.URL+"/", client.WithAccount("alice"))
	bob := client.New(server.URL, client.WithAccount("bob"))
	anon := client.New(server.URL, client.WithHTTPClient(server.Client()))

	dep, err := alice.Deposit(ctx, "10000")
	require.NoError(t, err)
	assert.Equal(t, "10000", dep.Shares)
	_, err = bob.Deposit(ctx, "5000")
	require.NoError(t, err)

	p, err := alice.SubmitProposal(ctx, api.ProposalRequest{
		Description: "audit",
		Receiver:    "auditor",
		Amount:      "2000",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Id)

	vote, err := alice.Vote(ctx, p.Id, true)
	require.NoError(t, err)
	assert.Equal(t, "10000", vote.Weight)

	voted, err := anon.HasVoted(ctx, p.Id, "alice")
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = anon.HasVoted(ctx, p.Id, "bob")
	require.NoError(t, err)
	assert.False(t, voted)
	_, err = anon.HasVoted(ctx, 42, "bob")
	require.True(t, client.IsNotFound(err))

	active, err := anon.ActiveProposals(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	now.Add(101)
	status, err := anon.Finalize(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, fund.ProposalStatusPassed, status.Status)

	now.Add(11)
	transfer, err := bob.Execute(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, "2000", transfer.Amount)

	period, err := anon.CurrentPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2000", period.Spent)
	spent, err := anon.PeriodSpent(ctx, period.Period)
	require.NoError(t, err)
	assert.Equal(t, period, spent)

	stats, err := anon.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "13000", stats.TreasuryValue)
	assert.Equal(t, uint64(1), stats.ProposalCount)

	shares, err := anon.MemberShares(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "5500", shares)
	shares, err = anon.MemberShares(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "0", shares)

	members, err := anon.Members(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	proposals, err := anon.Proposals(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, fund.ProposalStatusExecuted, proposals[0].Status)

	votes, err := anon.Votes(ctx, p.Id)
	require.NoError(t, err)
	assert.Len(t, votes, 1)

	events, err := anon.Events(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, events, 6)

	balance, err := anon.Credit(ctx, "500", "interest")
	require.NoError(t, err)
	assert.Equal(t, "13500", balance.Balance)
	treasury, err := anon.Treasury(ctx)
	require.NoError(t, err)
	assert.Equal(t, balance, treasury)
	transfers, err := anon.Transfers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, transfers, 4)

	price, err := anon.SharePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, fund.SharePriceScale.String(), price.Scale)

	cfg, err := anon.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(api.DefaultPeriodLength), cfg.PeriodLength)

	payout, err := bob.Withdraw(ctx, "5500")
	require.NoError(t, err)
	assert.NotEmpty(t, payout.Payout)
}

func TestClientErrors(t *testing.T) {
	var now atomic.Int64
	now.Store(1_700_000_000)
	server := newTestServer(t, &now)
	ctx := context.Background()
	alice := client.New(server.URL, client.WithAccount("alice"))
	_, err := alice.Deposit(ctx, "10000")
	require.NoError(t, err)

	p, err := alice.SubmitProposal(ctx, api.ProposalRequest{Receiver: "x", Amount: "100"})
	require.NoError(t, err)
	_, err = client.New(server.URL, client.WithAccount("mallory")).Cancel(ctx, p.Id)
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "proposer")

	canceled, err := alice.Cancel(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, fund.ProposalStatusCancelled, canceled.Status)

	p, err = alice.SubmitProposal(ctx, api.ProposalRequest{Receiver: "x", Amount: "100"})
	require.NoError(t, err)
	now.Add(101)
	expired, err := alice.Expire(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, fund.ProposalStatusFailed, expired.Status)

	_, err = alice.Proposal(ctx, 99)
	assert.True(t, client.IsNotFound(err))

	_, err = client.New("http://127.0.0.1:1").Stats(ctx)
	require.Error(t, err)
	assert.False(t, client.IsNotFound(err))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"1500000000000000000", "1.5"},
		{"1", "0.000000000000000001"},
		{"0", "0"},
		{"123000000000000000000000", "123000"},
	}
	for _, tc := range tests {
		ret, err := client.FormatAmount(tc.amount, client.DefaultDecimals)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, ret)
	}
	_, err := client.FormatAmount("abc", client.DefaultDecimals)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	ret, err := client.ParseAmount("1.5", client.DefaultDecimals)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", ret)
	ret, err = client.ParseAmount("42", 0)
	require.NoError(t, err)
	assert.Equal(t, "42", ret)
	_, err = client.ParseAmount("0.5", 0)
	assert.Error(t, err)
	_, err = client.ParseAmount("-1", client.DefaultDecimals)
	assert.Error(t, err)
}

func TestFormatBps(t *testing.T) {
	assert.Equal(t, "15%", client.FormatBps(1500))
	assert.Equal(t, "0.5%", client.FormatBps(50))
}
