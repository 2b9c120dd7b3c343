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

type votingEngine struct {
	state  *State
	params *FundParams
}

// quorum is the yes weight required to pass, against current voting shares
func (v votingEngine) quorum() *big.Int {
	ret := shareLedger{state: v.state, params: v.params}.votingShares()
	ret.Mul(ret, new(big.Int).SetUint64(v.params.QuorumPercent))
	return ret.Quo(ret, big.NewInt(100))
}

// passes reports whether the tally meets quorum with a strict yes majority
func (v votingEngine) passes(p *Proposal) bool {
	return p.YesVotes.Cmp(v.quorum()) >= 0 && p.YesVotes.Cmp(p.NoVotes) > 0
}

func (v votingEngine) planVote(
	d *Delta,
	env Env,
	p *Proposal,
	support bool,
) error {
	const op = "vote"
	if !v.state.isMember(env.Caller) {
		return newError(op, KindAuthorization, ErrNotMember)
	}
	if err := requireStatus(op, p, ProposalStatusOpen); err != nil {
		return err
	}
	if votingClosed(p, v.params, env.Timestamp) {
		return newError(op, KindState, ErrVotingClosed)
	}
	if _, ok := v.state.vote(p.Id, env.Caller); ok {
		return newError(op, KindState, ErrAlreadyVoted)
	}
	weight := new(big.Int).Set(v.state.balance(env.Caller))
	np := p.Clone()
	direction := VoteDirectionFromSupport(support)
	if direction == VoteYes {
		np.YesVotes.Add(np.YesVotes, weight)
	} else {
		np.NoVotes.Add(np.NoVotes, weight)
	}
	d.putProposal(np)
	d.putVote(&VoteRecord{
		ProposalId: p.Id,
		Voter:      env.Caller,
		Direction:  direction,
		Weight:     weight,
	})
	d.emit(event.VoteEventType, event.VoteEvent{
		ProposalId: p.Id,
		Voter:      string(env.Caller),
		Support:    support,
		Weight:     new(big.Int).Set(weight),
	})
	return nil
}
