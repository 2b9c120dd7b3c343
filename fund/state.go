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
	"fmt"
	"math/big"
	"slices"
)

type voteKey struct {
	proposalId uint64
	voter      Account
}

// State is the complete engine state. It is only mutated by applying a
// committed Delta; the Restore methods exist for stores rebuilding a
// persisted state before it is handed to the engine.
type State struct {
	totalShares   *big.Int
	balances      map[Account]*big.Int
	members       []Account
	proposalCount uint64
	proposals     map[uint64]*Proposal
	votes         map[uint64][]*VoteRecord
	voteIndex     map[voteKey]int
	voterIndex    map[Account][]uint64
	periodSpent   map[uint64]*big.Int
}

func NewState() *State {
	return &State{
		totalShares: new(big.Int),
		balances:    make(map[Account]*big.Int),
		proposals:   make(map[uint64]*Proposal),
		votes:       make(map[uint64][]*VoteRecord),
		voteIndex:   make(map[voteKey]int),
		voterIndex:  make(map[Account][]uint64),
		periodSpent: make(map[uint64]*big.Int),
	}
}

func (s *State) RestoreTotalShares(total *big.Int) {
	s.totalShares = cloneInt(total)
}

func (s *State) RestoreProposalCount(count uint64) {
	s.proposalCount = max(s.proposalCount, count)
}

// RestoreMember appends a member; callers restore members in join order
func (s *State) RestoreMember(account Account, shares *big.Int) error {
	if shares == nil || shares.Sign() <= 0 {
		return fmt.Errorf("member %s has no shares", account)
	}
	if _, ok := s.balances[account]; ok {
		return fmt.Errorf("duplicate member %s", account)
	}
	s.balances[account] = cloneInt(shares)
	s.members = append(s.members, account)
	return nil
}

func (s *State) RestoreProposal(p *Proposal) {
	s.proposals[p.Id] = p.Clone()
	s.proposalCount = max(s.proposalCount, p.Id)
}

// RestoreVote records a vote; callers restore votes in the order they were cast
func (s *State) RestoreVote(rec *VoteRecord) error {
	key := voteKey{proposalId: rec.ProposalId, voter: rec.Voter}
	if _, ok := s.voteIndex[key]; ok {
		return fmt.Errorf(
			"duplicate vote by %s on proposal %d",
			rec.Voter,
			rec.ProposalId,
		)
	}
	s.putVote(rec.Clone())
	return nil
}

func (s *State) RestorePeriodSpent(period uint64, spent *big.Int) {
	s.periodSpent[period] = cloneInt(spent)
}

func (s *State) balance(account Account) *big.Int {
	if bal, ok := s.balances[account]; ok {
		return bal
	}
	return new(big.Int)
}

func (s *State) isMember(account Account) bool {
	bal, ok := s.balances[account]
	return ok && bal.Sign() > 0
}

func (s *State) vote(proposalId uint64, voter Account) (*VoteRecord, bool) {
	idx, ok := s.voteIndex[voteKey{proposalId: proposalId, voter: voter}]
	if !ok {
		return nil, false
	}
	return s.votes[proposalId][idx], true
}

func (s *State) spent(period uint64) *big.Int {
	if v, ok := s.periodSpent[period]; ok {
		return v
	}
	return new(big.Int)
}

func (s *State) putVote(rec *VoteRecord) {
	key := voteKey{proposalId: rec.ProposalId, voter: rec.Voter}
	if idx, ok := s.voteIndex[key]; ok {
		s.votes[rec.ProposalId][idx] = rec
		return
	}
	s.voteIndex[key] = len(s.votes[rec.ProposalId])
	s.votes[rec.ProposalId] = append(s.votes[rec.ProposalId], rec)
	s.voterIndex[rec.Voter] = append(s.voterIndex[rec.Voter], rec.ProposalId)
}

func (s *State) setBalance(account Account, shares *big.Int) {
	_, exists := s.balances[account]
	if shares.Sign() == 0 {
		if exists {
			delete(s.balances, account)
			s.members = slices.DeleteFunc(s.members, func(a Account) bool {
				return a == account
			})
		}
		return
	}
	if !exists {
		s.members = append(s.members, account)
	}
	s.balances[account] = shares
}

// sumBalances is used to check share conservation
func (s *State) sumBalances() *big.Int {
	sum := new(big.Int)
	for _, bal := range s.balances {
		sum.Add(sum, bal)
	}
	return sum
}
