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
	"errors"
	"log/slog"
	"math/big"

	"github.com/blinklabs-io/treasury/event"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultQuorumPercent  = 51
	DefaultProposalCapBps = 1500
	DefaultPeriodCapBps   = 2500
	BpsDenominator        = 10000
	DefaultVotingPeriod   = 86400
	DefaultTimelockPeriod = 86400
	DefaultDeadShares     = 1000
)

// SharePriceScale is the fixed-point scale of SharePrice
var SharePriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// IdentityRegistry resolves an account's registered name. An empty name
// means the account is not registered.
type IdentityRegistry interface {
	AgentName(ctx context.Context, account Account) (string, error)
}

// ReputationOracle returns an account's reputation record
type ReputationOracle interface {
	LifetimeInfo(ctx context.Context, account Account) (LifetimeInfo, error)
}

// Store persists engine state. CommitFund must apply the whole delta
// atomically or not at all.
type Store interface {
	LoadFund(ctx context.Context) (*State, error)
	CommitFund(ctx context.Context, delta *Delta) error
}

type FundConfig struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Store        Store
	// Identity and Reputation gate deposits. A nil gate admits every account.
	Identity   IdentityRegistry
	Reputation ReputationOracle
	Params     FundParams
	// OpenExecution allows non-members to execute passed proposals
	OpenExecution bool
}

// DefaultParams returns the stock governance parameters
func DefaultParams() FundParams {
	return FundParams{
		MinDeposit:     big.NewInt(1),
		VotingPeriod:   DefaultVotingPeriod,
		TimelockPeriod: DefaultTimelockPeriod,
		QuorumPercent:  DefaultQuorumPercent,
		ProposalCapBps: DefaultProposalCapBps,
		PeriodCapBps:   DefaultPeriodCapBps,
		DeadShares:     big.NewInt(DefaultDeadShares),
	}
}

// withDefaults fills unset parameters from DefaultParams and validates the result
func (p FundParams) withDefaults() (FundParams, error) {
	def := DefaultParams()
	if p.MinDeposit == nil {
		p.MinDeposit = def.MinDeposit
	}
	if p.VotingPeriod == 0 {
		p.VotingPeriod = def.VotingPeriod
	}
	if p.TimelockPeriod == 0 {
		p.TimelockPeriod = def.TimelockPeriod
	}
	if p.QuorumPercent == 0 {
		p.QuorumPercent = def.QuorumPercent
	}
	if p.ProposalCapBps == 0 {
		p.ProposalCapBps = def.ProposalCapBps
	}
	if p.PeriodCapBps == 0 {
		p.PeriodCapBps = def.PeriodCapBps
	}
	if p.DeadShares == nil {
		p.DeadShares = def.DeadShares
	}
	switch {
	case p.MinDeposit.Sign() <= 0:
		return p, errors.New("minimum deposit must be positive")
	case p.DeadShares.Sign() < 0:
		return p, errors.New("dead shares must not be negative")
	case p.QuorumPercent > 100:
		return p, errors.New("quorum percent must not exceed 100")
	}
	p.MinDeposit = cloneInt(p.MinDeposit)
	p.DeadShares = cloneInt(p.DeadShares)
	return p, nil
}
