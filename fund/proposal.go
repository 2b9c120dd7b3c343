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

	"github.com/blinklabs-io/treasury/event"
)

const (
	failReasonVote       = "vote"
	failReasonExpired    = "expired"
	failReasonQuorumLost = "quorum-lost"
)

func votingClosed(p *Proposal, params *FundParams, now uint64) bool {
	return now > p.CreatedAt+params.VotingPeriod
}

func timelockElapsed(p *Proposal, params *FundParams, now uint64) bool {
	return now > p.PassedAt+params.TimelockPeriod
}

func requireStatus(op string, p *Proposal, status ProposalStatus) error {
	if p.Status == status {
		return nil
	}
	return &Error{
		Op:     op,
		Kind:   KindState,
		Reason: ErrInvalidTransition,
		Detail: fmt.Sprintf("proposal %d is %s", p.Id, p.Status),
	}
}

// transition moves p to a new status if the lifecycle allows it
func transition(op string, p *Proposal, to ProposalStatus) error {
	if !CanTransition(p.Status, to) {
		return transitionError(op, p.Status, to)
	}
	p.Status = to
	return nil
}

func (f *Fund) lookupProposal(op string, id uint64) (*Proposal, error) {
	p, ok := f.state.proposals[id]
	if !ok {
		return nil, &Error{
			Op:     op,
			Kind:   KindValidation,
			Reason: ErrProposalNotFound,
			Detail: fmt.Sprintf("id %d", id),
		}
	}
	return p, nil
}

func (f *Fund) planSubmit(d *Delta, env Env, req ProposalRequest) (uint64, error) {
	const op = "submit proposal"
	if !f.state.isMember(env.Caller) {
		return 0, newError(op, KindAuthorization, ErrNotMember)
	}
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return 0, newError(op, KindValidation, ErrInvalidAmount)
	}
	if err := f.guardrails().checkProposal(op, req.Amount, env.TreasuryValue); err != nil {
		return 0, err
	}
	id := f.state.proposalCount + 1
	p := &Proposal{
		Id:          id,
		Proposer:    env.Caller,
		Description: req.Description,
		Receiver:    req.Receiver,
		Amount:      new(big.Int).Set(req.Amount),
		Status:      ProposalStatusOpen,
		YesVotes:    new(big.Int),
		NoVotes:     new(big.Int),
		CreatedAt:   env.Timestamp,
		ExternalRef: req.ExternalRef,
	}
	d.ProposalCount = id
	d.putProposal(p)
	d.emit(event.ProposalCreatedEventType, event.ProposalCreatedEvent{
		ProposalId:  id,
		Proposer:    string(env.Caller),
		ExternalRef: req.ExternalRef,
		CreatedAt:   env.Timestamp,
	})
	return id, nil
}

func (f *Fund) planFinalize(d *Delta, env Env, id uint64) (ProposalStatus, error) {
	const op = "finalize voting"
	p, err := f.lookupProposal(op, id)
	if err != nil {
		return 0, err
	}
	if err := requireStatus(op, p, ProposalStatusOpen); err != nil {
		return p.Status, err
	}
	if !votingClosed(p, &f.params, env.Timestamp) {
		return p.Status, newError(op, KindState, ErrVotingOpen)
	}
	np := p.Clone()
	if f.voting().passes(np) {
		if err := transition(op, np, ProposalStatusPassed); err != nil {
			return p.Status, err
		}
		np.PassedAt = env.Timestamp
		d.emit(event.ProposalPassedEventType, event.ProposalPassedEvent{
			ProposalId: id,
			PassedAt:   env.Timestamp,
		})
	} else {
		if err := transition(op, np, ProposalStatusFailed); err != nil {
			return p.Status, err
		}
		d.emit(event.ProposalFailedEventType, event.ProposalFailedEvent{
			ProposalId: id,
			Reason:     failReasonVote,
		})
	}
	d.putProposal(np)
	return np.Status, nil
}

// planExecute advances a passed proposal through Executable to Executed.
// A quorum loss is recorded on the delta and must be committed even though
// an error is returned.
func (f *Fund) planExecute(d *Delta, env Env, id uint64) (*Transfer, error) {
	const op = "execute proposal"
	if !f.openExecution && !f.state.isMember(env.Caller) {
		return nil, newError(op, KindAuthorization, ErrNotMember)
	}
	p, err := f.lookupProposal(op, id)
	if err != nil {
		return nil, err
	}
	np := p.Clone()
	switch np.Status {
	case ProposalStatusPassed:
		if !timelockElapsed(np, &f.params, env.Timestamp) {
			return nil, newError(op, KindState, ErrTimelockActive)
		}
		if !f.voting().passes(np) {
			if err := transition(op, np, ProposalStatusFailed); err != nil {
				return nil, err
			}
			d.putProposal(np)
			d.emit(event.ProposalFailedEventType, event.ProposalFailedEvent{
				ProposalId: id,
				Reason:     failReasonQuorumLost,
			})
			d.commitOnError = true
			return nil, newError(op, KindState, ErrQuorumLost)
		}
		if err := transition(op, np, ProposalStatusExecutable); err != nil {
			return nil, err
		}
	case ProposalStatusExecutable:
	default:
		return nil, requireStatus(op, np, ProposalStatusPassed)
	}
	newSpent, err := f.guardrails().checkExecution(op, env, np.Amount)
	if err != nil {
		return nil, err
	}
	if err := transition(op, np, ProposalStatusExecuted); err != nil {
		return nil, err
	}
	transfer := Transfer{
		Kind:       TransferDisbursement,
		Account:    np.Receiver,
		Amount:     new(big.Int).Set(np.Amount),
		ProposalId: id,
		Timestamp:  env.Timestamp,
	}
	d.putProposal(np)
	d.PeriodSpent[env.Period] = newSpent
	d.addTransfer(transfer)
	d.emit(event.ProposalExecutedEventType, event.ProposalExecutedEvent{
		ProposalId: id,
		Receiver:   string(np.Receiver),
		Amount:     new(big.Int).Set(np.Amount),
		Period:     env.Period,
	})
	return &transfer, nil
}

func (f *Fund) planCancel(d *Delta, env Env, id uint64) error {
	const op = "cancel proposal"
	p, err := f.lookupProposal(op, id)
	if err != nil {
		return err
	}
	if p.Proposer != env.Caller {
		return newError(op, KindAuthorization, ErrNotProposer)
	}
	np := p.Clone()
	if err := requireStatus(op, np, ProposalStatusOpen); err != nil {
		return err
	}
	if err := transition(op, np, ProposalStatusCancelled); err != nil {
		return err
	}
	d.putProposal(np)
	d.emit(event.ProposalCancelledEventType, event.ProposalCancelledEvent{
		ProposalId: id,
		Proposer:   string(np.Proposer),
	})
	return nil
}

// planExpire fails an open proposal whose window closed without anyone
// finalizing it. No tally is consulted.
func (f *Fund) planExpire(d *Delta, env Env, id uint64) error {
	const op = "expire proposal"
	p, err := f.lookupProposal(op, id)
	if err != nil {
		return err
	}
	np := p.Clone()
	if err := requireStatus(op, np, ProposalStatusOpen); err != nil {
		return err
	}
	if !votingClosed(np, &f.params, env.Timestamp) {
		return newError(op, KindState, ErrVotingOpen)
	}
	if err := transition(op, np, ProposalStatusFailed); err != nil {
		return err
	}
	d.putProposal(np)
	d.emit(event.ProposalFailedEventType, event.ProposalFailedEvent{
		ProposalId: id,
		Reason:     failReasonExpired,
	})
	return nil
}
