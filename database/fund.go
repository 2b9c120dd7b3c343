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

package database

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/blinklabs-io/treasury/database/models"
	"github.com/blinklabs-io/treasury/database/types"
	"github.com/blinklabs-io/treasury/fund"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrNegativeTreasury = errors.New("treasury balance would become negative")

var tracer = otel.Tracer("github.com/blinklabs-io/treasury/database")

// LoadFund rebuilds the engine state from the committed fund rows
func (d *Database) LoadFund(ctx context.Context) (*fund.State, error) {
	_, span := tracer.Start(ctx, "database.LoadFund")
	defer span.End()
	txn := NewMetadataOnlyTxn(d, false)
	defer txn.Release()
	state := fund.NewState()
	fundState, err := d.metadata.GetFundState(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load fund state: %w", err)
	}
	state.RestoreTotalShares(fundState.TotalShares.Big())
	state.RestoreProposalCount(fundState.ProposalCount)
	members, err := d.metadata.GetMembers(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	for _, m := range members {
		if err := state.RestoreMember(fund.Account(m.Account), m.Shares.Big()); err != nil {
			return nil, err
		}
	}
	proposals, err := d.metadata.GetProposals(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	for _, p := range proposals {
		state.RestoreProposal(proposalFromModel(&p))
	}
	votes, err := d.metadata.GetVoteRecords(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	for _, v := range votes {
		err := state.RestoreVote(&fund.VoteRecord{
			ProposalId: v.ProposalID,
			Voter:      fund.Account(v.Voter),
			Direction:  fund.VoteDirection(v.Direction),
			Weight:     v.Weight.Big(),
			Retracted:  v.Retracted,
		})
		if err != nil {
			return nil, err
		}
	}
	spends, err := d.metadata.GetPeriodSpends(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("load period spend: %w", err)
	}
	for _, s := range spends {
		state.RestorePeriodSpent(s.Period, s.Spent.Big())
	}
	span.SetAttributes(
		attribute.Int("fund.members", len(members)),
		attribute.Int("fund.proposals", len(proposals)),
	)
	d.logger.Debug(
		"loaded fund state",
		"component", "database",
		"members", len(members),
		"proposals", len(proposals),
		"votes", len(votes),
	)
	return state, nil
}

// CommitFund writes the effects of one operation and its journal entries in
// a single transaction
func (d *Database) CommitFund(ctx context.Context, delta *fund.Delta) error {
	_, span := tracer.Start(
		ctx,
		"database.CommitFund",
		trace.WithAttributes(
			attribute.Int("fund.events", len(delta.Events())),
		),
	)
	defer span.End()
	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	start := time.Now()
	txn := NewTxn(d, true)
	err := txn.Do(func(txn *Txn) error {
		seq, err := d.appendJournal(txn, delta)
		if err != nil {
			return err
		}
		return d.commitFundState(txn, delta, seq)
	})
	if err != nil {
		span.RecordError(err)
		if d.metrics != nil {
			d.metrics.commitErrors.Inc()
		}
		return err
	}
	if d.metrics != nil {
		d.metrics.commitDuration.Observe(time.Since(start).Seconds())
		d.metrics.journalEntries.Add(float64(len(delta.Events())))
	}
	return nil
}

func (d *Database) commitFundState(
	txn *Txn,
	delta *fund.Delta,
	journalSeq uint64,
) error {
	mTxn := txn.Metadata()
	fundState, err := d.metadata.GetFundState(mTxn)
	if err != nil {
		return err
	}
	fundState.JournalSeq = journalSeq
	if delta.TotalShares != nil {
		fundState.TotalShares = types.NewBigInt(delta.TotalShares)
	}
	fundState.ProposalCount = max(fundState.ProposalCount, delta.ProposalCount)
	balance := fundState.TreasuryBalance.Big()
	for _, t := range delta.Transfers {
		switch t.Kind {
		case fund.TransferDeposit:
			balance.Add(balance, t.Amount)
		case fund.TransferWithdraw, fund.TransferDisbursement:
			balance.Sub(balance, t.Amount)
		}
		if err := d.metadata.AddTransfer(transferToModel(t), mTxn); err != nil {
			return err
		}
	}
	if balance.Sign() < 0 {
		return ErrNegativeTreasury
	}
	fundState.TreasuryBalance = types.NewBigInt(balance)
	if err := d.metadata.SetFundState(fundState, mTxn); err != nil {
		return err
	}
	for _, m := range delta.Members {
		if err := d.metadata.SetMember(string(m.Account), m.Shares, mTxn); err != nil {
			return err
		}
	}
	for _, p := range delta.Proposals {
		if err := d.metadata.SetProposal(proposalToModel(p), mTxn); err != nil {
			return err
		}
	}
	for _, v := range delta.Votes {
		tmpVote := &models.VoteRecord{
			ProposalID: v.ProposalId,
			Voter:      string(v.Voter),
			Direction:  uint8(v.Direction),
			Weight:     types.NewBigInt(v.Weight),
			Retracted:  v.Retracted,
		}
		if err := d.metadata.SetVoteRecord(tmpVote, mTxn); err != nil {
			return err
		}
	}
	for period, spent := range delta.PeriodSpent {
		tmpSpend := &models.PeriodSpend{
			Period: period,
			Spent:  types.NewBigInt(spent),
		}
		if err := d.metadata.SetPeriodSpend(tmpSpend, mTxn); err != nil {
			return err
		}
	}
	return nil
}

// TreasuryBalance returns the value currently held by the fund
func (d *Database) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	_, span := tracer.Start(ctx, "database.TreasuryBalance")
	defer span.End()
	fundState, err := d.metadata.GetFundState(nil)
	if err != nil {
		return nil, err
	}
	return fundState.TreasuryBalance.Big(), nil
}

// CreditTreasury adds value that did not come from a member deposit, such as
// investment returns. It mints no shares, so it raises the share price
func (d *Database) CreditTreasury(
	ctx context.Context,
	amount *big.Int,
	memo string,
	timestamp uint64,
) (*big.Int, error) {
	_, span := tracer.Start(ctx, "database.CreditTreasury")
	defer span.End()
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("credit amount must be positive")
	}
	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	var ret *big.Int
	txn := NewMetadataOnlyTxn(d, true)
	err := txn.Do(func(txn *Txn) error {
		fundState, err := d.metadata.GetFundState(txn.Metadata())
		if err != nil {
			return err
		}
		ret = new(big.Int).Add(fundState.TreasuryBalance.Big(), amount)
		fundState.TreasuryBalance = types.NewBigInt(ret)
		if err := d.metadata.SetFundState(fundState, txn.Metadata()); err != nil {
			return err
		}
		return d.metadata.AddTransfer(
			&models.TreasuryTransfer{
				Kind:      TransferKindCredit,
				Amount:    types.NewBigInt(amount),
				Timestamp: timestamp,
				Memo:      memo,
			},
			txn.Metadata(),
		)
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info(
		"credited treasury",
		"component", "database",
		"amount", amount.String(),
		"balance", ret.String(),
	)
	return ret, nil
}

// TransferKindCredit marks value added outside of member deposits
const TransferKindCredit = "credit"

// Transfers returns recorded treasury movements in the order they happened
func (d *Database) Transfers(
	ctx context.Context,
	offset int,
	limit int,
) ([]models.TreasuryTransfer, error) {
	_, span := tracer.Start(ctx, "database.Transfers")
	defer span.End()
	return d.metadata.GetTransfers(offset, limit, nil)
}

func transferToModel(t fund.Transfer) *models.TreasuryTransfer {
	return &models.TreasuryTransfer{
		Kind:       t.Kind.String(),
		Account:    string(t.Account),
		Amount:     types.NewBigInt(t.Amount),
		ProposalID: t.ProposalId,
		Timestamp:  t.Timestamp,
	}
}

func proposalToModel(p *fund.Proposal) *models.Proposal {
	return &models.Proposal{
		ID:          p.Id,
		Proposer:    string(p.Proposer),
		Description: p.Description,
		Receiver:    string(p.Receiver),
		Amount:      types.NewBigInt(p.Amount),
		Status:      uint8(p.Status),
		YesVotes:    types.NewBigInt(p.YesVotes),
		NoVotes:     types.NewBigInt(p.NoVotes),
		CreatedAt:   p.CreatedAt,
		PassedAt:    p.PassedAt,
		ExternalRef: p.ExternalRef,
	}
}

func proposalFromModel(p *models.Proposal) *fund.Proposal {
	return &fund.Proposal{
		Id:          p.ID,
		Proposer:    fund.Account(p.Proposer),
		Description: p.Description,
		Receiver:    fund.Account(p.Receiver),
		Amount:      p.Amount.Big(),
		Status:      fund.ProposalStatus(p.Status),
		YesVotes:    p.YesVotes.Big(),
		NoVotes:     p.NoVotes.Big(),
		CreatedAt:   p.CreatedAt,
		PassedAt:    p.PassedAt,
		ExternalRef: p.ExternalRef,
	}
}
