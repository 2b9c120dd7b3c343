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
	"math/big"
)

// Proposal returns a copy of a proposal
func (f *Fund) Proposal(id uint64) (*Proposal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, err := f.lookupProposal("get proposal", id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Proposals returns up to count proposals starting at id from. An id of 0
// starts at the first proposal. Missing ids are skipped.
func (f *Fund) Proposals(from uint64, count uint64) []*Proposal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	total := f.state.proposalCount
	start := max(from, 1)
	if count == 0 || start > total {
		return []*Proposal{}
	}
	end := total
	if count-1 < total-start {
		end = start + count - 1
	}
	ret := make([]*Proposal, 0, end-start+1)
	for id := start; id <= end; id++ {
		if p, ok := f.state.proposals[id]; ok {
			ret = append(ret, p.Clone())
		}
	}
	return ret
}

// ActiveProposals returns open proposals still inside their voting window,
// plus every proposal awaiting execution
func (f *Fund) ActiveProposals(now uint64) []*Proposal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ret := []*Proposal{}
	for id := uint64(1); id <= f.state.proposalCount; id++ {
		p, ok := f.state.proposals[id]
		if !ok {
			continue
		}
		switch p.Status {
		case ProposalStatusOpen:
			if votingClosed(p, &f.params, now) {
				continue
			}
		case ProposalStatusPassed, ProposalStatusExecutable:
		default:
			continue
		}
		ret = append(ret, p.Clone())
	}
	return ret
}

func (f *Fund) Stats(treasuryValue *big.Int) FundStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FundStats{
		TreasuryValue: cloneInt(treasuryValue),
		TotalShares:   cloneInt(f.state.totalShares),
		MemberCount:   uint64(len(f.state.members)),
		ProposalCount: f.state.proposalCount,
		MinReputation: f.params.MinReputation,
	}
}

// SharePrice returns the value of one share scaled by SharePriceScale
func (f *Fund) SharePrice(treasuryValue *big.Int) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ledger().sharePrice(cloneInt(treasuryValue))
}

// Members returns up to count members in join order, starting at the
// zero-based offset from
func (f *Fund) Members(from uint64, count uint64) []Member {
	f.mu.RLock()
	defer f.mu.RUnlock()
	total := uint64(len(f.state.members))
	if from >= total {
		return []Member{}
	}
	end := min(total, from+count)
	if end < from {
		end = total
	}
	ret := make([]Member, 0, end-from)
	for _, account := range f.state.members[from:end] {
		ret = append(ret, Member{
			Account: account,
			Shares:  cloneInt(f.state.balances[account]),
		})
	}
	return ret
}

func (f *Fund) MemberShares(account Account) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneInt(f.state.balance(account))
}

func (f *Fund) IsMember(account Account) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.isMember(account)
}

func (f *Fund) TotalShares() *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneInt(f.state.totalShares)
}

// VotingShares returns the shares eligible for quorum
func (f *Fund) VotingShares() *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ledger().votingShares()
}

func (f *Fund) PeriodSpent(period uint64) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneInt(f.state.spent(period))
}

// VoteRecords returns the votes cast on a proposal in casting order
func (f *Fund) VoteRecords(id uint64) ([]*VoteRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, err := f.lookupProposal("get votes", id); err != nil {
		return nil, err
	}
	recs := f.state.votes[id]
	ret := make([]*VoteRecord, 0, len(recs))
	for _, rec := range recs {
		ret = append(ret, rec.Clone())
	}
	return ret, nil
}

// VoteRecord returns a single vote, if cast
func (f *Fund) VoteRecord(id uint64, voter Account) (*VoteRecord, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.state.vote(id, voter)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (f *Fund) HasVoted(id uint64, voter Account) bool {
	_, ok := f.VoteRecord(id, voter)
	return ok
}

// Params returns the engine's governance parameters
func (f *Fund) Params() FundParams {
	ret := f.params
	ret.MinDeposit = cloneInt(f.params.MinDeposit)
	ret.DeadShares = cloneInt(f.params.DeadShares)
	return ret
}

// Caps returns the per-proposal and per-period spending limits at the given
// treasury value
func (f *Fund) Caps(treasuryValue *big.Int) (*big.Int, *big.Int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g := f.guardrails()
	value := cloneInt(treasuryValue)
	return g.proposalCap(value), g.periodCap(value)
}
