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
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/blinklabs-io/treasury/event"
)

// Fund is the governance engine. Every operation runs under one exclusive
// lock and commits all of its effects or none.
type Fund struct {
	mu            sync.RWMutex
	pendingMu     sync.Mutex
	pending       []event.Event
	draining      bool
	state         *State
	params        FundParams
	config        FundConfig
	logger        *slog.Logger
	metrics       *fundMetrics
	openExecution bool
}

func NewFund(ctx context.Context, cfg FundConfig) (*Fund, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	params, err := cfg.Params.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("invalid fund parameters: %w", err)
	}
	f := &Fund{
		params:        params,
		config:        cfg,
		logger:        cfg.Logger.With("component", "fund"),
		openExecution: cfg.OpenExecution,
	}
	if cfg.Store != nil {
		state, err := cfg.Store.LoadFund(ctx)
		if err != nil {
			return nil, fmt.Errorf("load fund state: %w", err)
		}
		f.state = state
	} else {
		f.state = NewState()
	}
	if cfg.PromRegistry != nil {
		f.initMetrics(cfg.PromRegistry)
		f.updateGauges()
	}
	f.logger.Info(
		"fund loaded",
		"members", len(f.state.members),
		"total_shares", f.state.totalShares.String(),
		"proposals", f.state.proposalCount,
	)
	return f, nil
}

func (f *Fund) ledger() shareLedger {
	return shareLedger{state: f.state, params: &f.params}
}

func (f *Fund) voting() votingEngine {
	return votingEngine{state: f.state, params: &f.params}
}

func (f *Fund) guardrails() guardrails {
	return guardrails{state: f.state, params: &f.params}
}

func (f *Fund) rageQuit() rageQuit {
	return rageQuit{state: f.state, params: &f.params}
}

func checkEnv(op string, env Env) error {
	if env.TreasuryValue == nil {
		return newError(op, KindValidation, ErrMissingTreasury)
	}
	return nil
}

// run plans an operation against the current state, commits the resulting
// delta and publishes its events in commit order
func (f *Fund) run(
	ctx context.Context,
	op string,
	plan func(d *Delta) error,
) error {
	f.mu.Lock()
	d := newDelta()
	planErr := plan(d)
	if planErr != nil && !d.commitOnError {
		f.mu.Unlock()
		f.recordError(op, planErr)
		return planErr
	}
	if !d.Empty() && f.config.Store != nil {
		if err := f.config.Store.CommitFund(ctx, d); err != nil {
			f.mu.Unlock()
			f.logger.Error(
				"commit failed",
				"op", op,
				"error", err,
			)
			return fmt.Errorf("%s: commit: %w", op, err)
		}
	}
	d.apply(f.state)
	f.updateGauges()
	f.recordEvents(d)
	// Events are queued in apply order. Delivery happens after the state lock
	// is released, so a slow subscriber never blocks reads or later operations
	drain := f.queueEvents(d)
	f.mu.Unlock()
	if drain {
		f.drainEvents()
	}
	if planErr != nil {
		f.recordError(op, planErr)
		return planErr
	}
	f.logger.Debug("operation committed", "op", op)
	return nil
}

// queueEvents appends the delta's events to the pending queue. It reports
// whether the caller must drain the queue, which is the case when no other
// goroutine is already draining it
func (f *Fund) queueEvents(d *Delta) bool {
	if f.config.EventBus == nil || len(d.events) == 0 {
		return false
	}
	f.pendingMu.Lock()
	defer f.pendingMu.Unlock()
	f.pending = append(f.pending, d.events...)
	if f.draining {
		return false
	}
	f.draining = true
	return true
}

// drainEvents publishes queued events until the queue is empty
func (f *Fund) drainEvents() {
	for {
		f.pendingMu.Lock()
		batch := f.pending
		f.pending = nil
		if len(batch) == 0 {
			f.draining = false
			f.pendingMu.Unlock()
			return
		}
		f.pendingMu.Unlock()
		for _, evt := range batch {
			f.config.EventBus.Publish(evt.Type, evt)
		}
	}
}

// checkGates runs the membership gates for a depositor. It is called before
// the state lock is taken.
func (f *Fund) checkGates(ctx context.Context, account Account) error {
	const op = "deposit"
	if f.config.Identity != nil {
		name, err := f.config.Identity.AgentName(ctx, account)
		if err != nil {
			return fmt.Errorf("%s: identity lookup: %w", op, err)
		}
		if name == "" {
			return newError(op, KindAuthorization, ErrNotRegistered)
		}
	}
	if f.config.Reputation != nil {
		info, err := f.config.Reputation.LifetimeInfo(ctx, account)
		if err != nil {
			return fmt.Errorf("%s: reputation lookup: %w", op, err)
		}
		if info.LifetimeScore < f.params.MinReputation {
			return &Error{
				Op:     op,
				Kind:   KindAuthorization,
				Reason: ErrInsufficientReputation,
				Detail: fmt.Sprintf(
					"score %d, minimum %d",
					info.LifetimeScore,
					f.params.MinReputation,
				),
			}
		}
	}
	return nil
}

// Deposit buys shares with amount and returns the number of shares minted.
// env.TreasuryValue is the treasury value before the deposit arrives.
func (f *Fund) Deposit(
	ctx context.Context,
	env Env,
	amount *big.Int,
) (*big.Int, error) {
	const op = "deposit"
	if err := checkEnv(op, env); err != nil {
		return nil, err
	}
	if amount == nil || amount.Cmp(f.params.MinDeposit) < 0 {
		err := newError(op, KindValidation, ErrBelowMinimumDeposit)
		f.recordError(op, err)
		return nil, err
	}
	if err := f.checkGates(ctx, env.Caller); err != nil {
		f.recordError(op, err)
		return nil, err
	}
	var minted *big.Int
	err := f.run(ctx, op, func(d *Delta) error {
		var err error
		minted, err = f.ledger().planDeposit(d, env, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info(
		"deposit",
		"account", env.Caller,
		"amount", amount.String(),
		"shares", minted.String(),
	)
	return minted, nil
}

// Withdraw redeems shares and returns the payout owed to the caller. Any
// in-flight votes by the caller lose their weight.
func (f *Fund) Withdraw(
	ctx context.Context,
	env Env,
	shares *big.Int,
) (*big.Int, error) {
	const op = "withdraw"
	if err := checkEnv(op, env); err != nil {
		return nil, err
	}
	if shares == nil {
		shares = new(big.Int)
	}
	var payout *big.Int
	var retracted int
	err := f.run(ctx, op, func(d *Delta) error {
		var err error
		payout, err = f.ledger().planWithdraw(d, env, shares)
		if err != nil {
			return err
		}
		retracted = f.rageQuit().plan(d, env)
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info(
		"withdraw",
		"account", env.Caller,
		"shares", shares.String(),
		"payout", payout.String(),
		"retracted_votes", retracted,
	)
	return payout, nil
}

// SubmitProposal opens a new disbursement proposal and returns its id
func (f *Fund) SubmitProposal(
	ctx context.Context,
	env Env,
	req ProposalRequest,
) (uint64, error) {
	const op = "submit proposal"
	if err := checkEnv(op, env); err != nil {
		return 0, err
	}
	var id uint64
	err := f.run(ctx, op, func(d *Delta) error {
		var err error
		id, err = f.planSubmit(d, env, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	f.logger.Info(
		"proposal submitted",
		"proposal_id", id,
		"proposer", env.Caller,
		"amount", req.Amount.String(),
	)
	return id, nil
}

// Vote casts the caller's full current share balance for or against a proposal
func (f *Fund) Vote(
	ctx context.Context,
	env Env,
	id uint64,
	support bool,
) error {
	const op = "vote"
	return f.run(ctx, op, func(d *Delta) error {
		p, err := f.lookupProposal(op, id)
		if err != nil {
			return err
		}
		return f.voting().planVote(d, env, p, support)
	})
}

// FinalizeVoting closes an expired voting window and returns the resulting status
func (f *Fund) FinalizeVoting(
	ctx context.Context,
	env Env,
	id uint64,
) (ProposalStatus, error) {
	var status ProposalStatus
	err := f.run(ctx, "finalize voting", func(d *Delta) error {
		var err error
		status, err = f.planFinalize(d, env, id)
		return err
	})
	if err != nil {
		return status, err
	}
	f.logger.Info("voting finalized", "proposal_id", id, "status", status)
	return status, nil
}

// ExecuteProposal disburses a passed proposal after its time-lock and returns
// the transfer the host must perform
func (f *Fund) ExecuteProposal(
	ctx context.Context,
	env Env,
	id uint64,
) (*Transfer, error) {
	const op = "execute proposal"
	if err := checkEnv(op, env); err != nil {
		return nil, err
	}
	var transfer *Transfer
	err := f.run(ctx, op, func(d *Delta) error {
		var err error
		transfer, err = f.planExecute(d, env, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info(
		"proposal executed",
		"proposal_id", id,
		"receiver", transfer.Account,
		"amount", transfer.Amount.String(),
		"period", env.Period,
	)
	return transfer, nil
}

// CancelProposal lets the proposer withdraw an open proposal
func (f *Fund) CancelProposal(ctx context.Context, env Env, id uint64) error {
	return f.run(ctx, "cancel proposal", func(d *Delta) error {
		return f.planCancel(d, env, id)
	})
}

// ExpireProposal fails an open proposal whose voting window has closed
func (f *Fund) ExpireProposal(ctx context.Context, env Env, id uint64) error {
	return f.run(ctx, "expire proposal", func(d *Delta) error {
		return f.planExpire(d, env, id)
	})
}
