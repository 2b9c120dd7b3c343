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

package api

import (
	"math/big"

	"github.com/blinklabs-io/treasury/database/models"
	"github.com/blinklabs-io/treasury/fund"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type DepositRequest struct {
	Amount string `json:"amount"`
}

type DepositResponse struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Shares  string `json:"shares"`
}

type WithdrawRequest struct {
	Shares string `json:"shares"`
}

type WithdrawResponse struct {
	Account string `json:"account"`
	Shares  string `json:"shares"`
	Payout  string `json:"payout"`
}

type ProposalRequest struct {
	Description string `json:"description"`
	Receiver    string `json:"receiver"`
	Amount      string `json:"amount"`
	ExternalRef uint64 `json:"external_ref"`
}

type VoteRequest struct {
	Support bool `json:"support"`
}

type CreditRequest struct {
	Amount string `json:"amount"`
	Memo   string `json:"memo"`
}

type BalanceResponse struct {
	Balance string `json:"balance"`
}

type StatusResponse struct {
	ProposalId uint64              `json:"proposal_id"`
	Status     fund.ProposalStatus `json:"status"`
}

type ProposalResponse struct {
	Id          uint64              `json:"id"`
	Proposer    string              `json:"proposer"`
	Description string              `json:"description"`
	Receiver    string              `json:"receiver"`
	Amount      string              `json:"amount"`
	Status      fund.ProposalStatus `json:"status"`
	YesVotes    string              `json:"yes_votes"`
	NoVotes     string              `json:"no_votes"`
	CreatedAt   uint64              `json:"created_at"`
	PassedAt    uint64              `json:"passed_at"`
	ExternalRef uint64              `json:"external_ref"`
}

type VoteResponse struct {
	ProposalId uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Support    bool   `json:"support"`
	Weight     string `json:"weight"`
	Retracted  bool   `json:"retracted"`
}

type TransferResponse struct {
	Kind       string `json:"kind"`
	Account    string `json:"account,omitempty"`
	Amount     string `json:"amount"`
	ProposalId uint64 `json:"proposal_id,omitempty"`
	Timestamp  uint64 `json:"timestamp"`
	Memo       string `json:"memo,omitempty"`
}

type StatsResponse struct {
	TreasuryValue string `json:"treasury_value"`
	TotalShares   string `json:"total_shares"`
	VotingShares  string `json:"voting_shares"`
	MemberCount   uint64 `json:"member_count"`
	ProposalCount uint64 `json:"proposal_count"`
	MinReputation uint64 `json:"min_reputation"`
}

type SharePriceResponse struct {
	SharePrice string `json:"share_price"`
	Scale      string `json:"scale"`
}

type MemberResponse struct {
	Account string `json:"account"`
	Shares  string `json:"shares"`
}

type PeriodResponse struct {
	Period uint64 `json:"period"`
	Spent  string `json:"spent"`
	// Cap is the period cap at the current treasury value
	Cap string `json:"cap"`
}

type ConfigResponse struct {
	MinDeposit     string `json:"min_deposit"`
	MinReputation  uint64 `json:"min_reputation"`
	VotingPeriod   uint64 `json:"voting_period"`
	TimelockPeriod uint64 `json:"timelock_period"`
	QuorumPercent  uint64 `json:"quorum_percent"`
	ProposalCapBps uint64 `json:"proposal_cap_bps"`
	PeriodCapBps   uint64 `json:"period_cap_bps"`
	DeadShares     string `json:"dead_shares"`
	PeriodLength   uint64 `json:"period_length"`
}

type EventResponse struct {
	Seq       uint64 `json:"seq"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func proposalResponse(p *fund.Proposal) ProposalResponse {
	return ProposalResponse{
		Id:          p.Id,
		Proposer:    string(p.Proposer),
		Description: p.Description,
		Receiver:    string(p.Receiver),
		Amount:      amountString(p.Amount),
		Status:      p.Status,
		YesVotes:    amountString(p.YesVotes),
		NoVotes:     amountString(p.NoVotes),
		CreatedAt:   p.CreatedAt,
		PassedAt:    p.PassedAt,
		ExternalRef: p.ExternalRef,
	}
}

func proposalsResponse(proposals []*fund.Proposal) []ProposalResponse {
	ret := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		ret = append(ret, proposalResponse(p))
	}
	return ret
}

func voteResponse(v *fund.VoteRecord) VoteResponse {
	return VoteResponse{
		ProposalId: v.ProposalId,
		Voter:      string(v.Voter),
		Support:    v.Direction == fund.VoteYes,
		Weight:     amountString(v.Weight),
		Retracted:  v.Retracted,
	}
}

func transferResponse(t *fund.Transfer) TransferResponse {
	return TransferResponse{
		Kind:       t.Kind.String(),
		Account:    string(t.Account),
		Amount:     amountString(t.Amount),
		ProposalId: t.ProposalId,
		Timestamp:  t.Timestamp,
	}
}

func transferModelResponse(t models.TreasuryTransfer) TransferResponse {
	return TransferResponse{
		Kind:       t.Kind,
		Account:    t.Account,
		Amount:     amountString(t.Amount.Big()),
		ProposalId: t.ProposalID,
		Timestamp:  t.Timestamp,
		Memo:       t.Memo,
	}
}
