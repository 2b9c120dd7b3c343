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

	"github.com/blinklabs-io/treasury/event"
)

// Delta collects every effect of one operation. Nothing in State changes
// until the delta has been committed to the store and applied.
type Delta struct {
	// TotalShares is the new total, or nil when unchanged
	TotalShares *big.Int
	// Members holds new balances; a zero balance removes the member
	Members []Member
	// ProposalCount is the new count, or zero when unchanged
	ProposalCount uint64
	// Proposals are replacement copies of new or modified proposals
	Proposals []*Proposal
	// Votes are new or modified vote records
	Votes []*VoteRecord
	// PeriodSpent holds new accumulator values by period
	PeriodSpent map[uint64]*big.Int
	Transfers   []Transfer

	events        []event.Event
	commitOnError bool
}

func newDelta() *Delta {
	return &Delta{
		PeriodSpent: make(map[uint64]*big.Int),
	}
}

// Empty reports whether the delta carries no state changes
func (d *Delta) Empty() bool {
	return d.TotalShares == nil &&
		len(d.Members) == 0 &&
		d.ProposalCount == 0 &&
		len(d.Proposals) == 0 &&
		len(d.Votes) == 0 &&
		len(d.PeriodSpent) == 0 &&
		len(d.Transfers) == 0
}

func (d *Delta) setBalance(account Account, shares *big.Int) {
	d.Members = append(d.Members, Member{Account: account, Shares: shares})
}

func (d *Delta) putProposal(p *Proposal) {
	for i, existing := range d.Proposals {
		if existing.Id == p.Id {
			d.Proposals[i] = p
			return
		}
	}
	d.Proposals = append(d.Proposals, p)
}

func (d *Delta) putVote(rec *VoteRecord) {
	d.Votes = append(d.Votes, rec)
}

func (d *Delta) addTransfer(t Transfer) {
	d.Transfers = append(d.Transfers, t)
}

func (d *Delta) emit(eventType event.EventType, data any) {
	d.events = append(d.events, event.NewEvent(eventType, data))
}

// Events returns the events the operation emits once committed
func (d *Delta) Events() []event.Event {
	return d.events
}

func (d *Delta) apply(s *State) {
	if d.TotalShares != nil {
		s.totalShares = d.TotalShares
	}
	for _, m := range d.Members {
		s.setBalance(m.Account, m.Shares)
	}
	if d.ProposalCount > s.proposalCount {
		s.proposalCount = d.ProposalCount
	}
	for _, p := range d.Proposals {
		s.proposals[p.Id] = p
	}
	for _, rec := range d.Votes {
		s.putVote(rec)
	}
	for period, spent := range d.PeriodSpent {
		s.periodSpent[period] = spent
	}
}
