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

// rageQuit strips a withdrawing member's vote weight from proposals whose
// outcome is still undecided. It never changes a proposal's status.
type rageQuit struct {
	state  *State
	params *FundParams
}

// inFlight reports whether a proposal's tally can still be affected by a
// retraction at the given time
func (r rageQuit) inFlight(p *Proposal, now uint64) bool {
	switch p.Status {
	case ProposalStatusOpen:
		return !votingClosed(p, r.params, now)
	case ProposalStatusPassed:
		return !timelockElapsed(p, r.params, now)
	}
	return false
}

// plan walks the account's vote index and returns the number of proposals
// whose tally was reduced
func (r rageQuit) plan(d *Delta, env Env) int {
	var count int
	for _, id := range r.state.voterIndex[env.Caller] {
		p, ok := r.state.proposals[id]
		if !ok || !r.inFlight(p, env.Timestamp) {
			continue
		}
		rec, ok := r.state.vote(id, env.Caller)
		if !ok || rec.Retracted {
			continue
		}
		np := p.Clone()
		if rec.Direction == VoteYes {
			np.YesVotes = subFloor(np.YesVotes, rec.Weight)
		} else {
			np.NoVotes = subFloor(np.NoVotes, rec.Weight)
		}
		retracted := rec.Clone()
		retracted.Retracted = true
		d.putProposal(np)
		d.putVote(retracted)
		d.emit(event.RageQuitEventType, event.RageQuitEvent{
			ProposalId: id,
			Account:    string(env.Caller),
			Weight:     new(big.Int).Set(rec.Weight),
			Support:    rec.Direction == VoteYes,
		})
		count++
	}
	return count
}

func subFloor(a, b *big.Int) *big.Int {
	ret := new(big.Int).Sub(a, b)
	if ret.Sign() < 0 {
		ret.SetInt64(0)
	}
	return ret
}
