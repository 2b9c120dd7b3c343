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
)

// Account is an opaque member identifier supplied by the hosting layer
type Account string

type ProposalStatus uint8

const (
	ProposalStatusOpen ProposalStatus = iota
	ProposalStatusPassed
	ProposalStatusExecutable
	ProposalStatusExecuted
	ProposalStatusFailed
	ProposalStatusCancelled
)

var proposalStatusNames = map[ProposalStatus]string{
	ProposalStatusOpen:       "open",
	ProposalStatusPassed:     "passed",
	ProposalStatusExecutable: "executable",
	ProposalStatusExecuted:   "executed",
	ProposalStatusFailed:     "failed",
	ProposalStatusCancelled:  "cancelled",
}

func (s ProposalStatus) String() string {
	if name, ok := proposalStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

func (s ProposalStatus) MarshalText() ([]byte, error) {
	if _, ok := proposalStatusNames[s]; !ok {
		return nil, fmt.Errorf("unknown proposal status: %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ProposalStatus) UnmarshalText(data []byte) error {
	for status, name := range proposalStatusNames {
		if name == string(data) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown proposal status: %q", string(data))
}

// Terminal reports whether no further transition is possible
func (s ProposalStatus) Terminal() bool {
	switch s {
	case ProposalStatusExecuted, ProposalStatusFailed, ProposalStatusCancelled:
		return true
	}
	return false
}

// proposalTransitions is the complete lifecycle graph. Any edge not listed
// here is rejected.
var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalStatusOpen: {
		ProposalStatusPassed,
		ProposalStatusFailed,
		ProposalStatusCancelled,
	},
	ProposalStatusPassed: {
		ProposalStatusExecutable,
		ProposalStatusFailed,
	},
	ProposalStatusExecutable: {
		ProposalStatusExecuted,
	},
}

// CanTransition reports whether the lifecycle allows moving from one status to another
func CanTransition(from, to ProposalStatus) bool {
	for _, next := range proposalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type VoteDirection uint8

const (
	VoteNo VoteDirection = iota
	VoteYes
)

func (d VoteDirection) String() string {
	if d == VoteYes {
		return "yes"
	}
	return "no"
}

func VoteDirectionFromSupport(support bool) VoteDirection {
	if support {
		return VoteYes
	}
	return VoteNo
}

// Proposal is a disbursement request and its running tally
type Proposal struct {
	Id          uint64
	Proposer    Account
	Description string
	Receiver    Account
	Amount      *big.Int
	Status      ProposalStatus
	YesVotes    *big.Int
	NoVotes     *big.Int
	CreatedAt   uint64
	PassedAt    uint64
	ExternalRef uint64
}

// Clone returns a deep copy that shares no big.Int values with the original
func (p *Proposal) Clone() *Proposal {
	ret := *p
	ret.Amount = cloneInt(p.Amount)
	ret.YesVotes = cloneInt(p.YesVotes)
	ret.NoVotes = cloneInt(p.NoVotes)
	return &ret
}

// VoteRecord is a cast vote with its weight frozen at voting time
type VoteRecord struct {
	ProposalId uint64
	Voter      Account
	Direction  VoteDirection
	Weight     *big.Int
	// Retracted is set once a withdrawal has removed the weight from the tally
	Retracted bool
}

func (v *VoteRecord) Clone() *VoteRecord {
	ret := *v
	ret.Weight = cloneInt(v.Weight)
	return &ret
}

type TransferKind uint8

const (
	TransferDeposit TransferKind = iota + 1
	TransferWithdraw
	TransferDisbursement
)

func (k TransferKind) String() string {
	switch k {
	case TransferDeposit:
		return "deposit"
	case TransferWithdraw:
		return "withdraw"
	case TransferDisbursement:
		return "disbursement"
	}
	return "unknown"
}

// Transfer is a movement of treasury value caused by an operation. Deposits
// flow in; withdrawals and disbursements flow out.
type Transfer struct {
	Kind       TransferKind
	Account    Account
	Amount     *big.Int
	ProposalId uint64
	Timestamp  uint64
}

// Env carries the host-supplied inputs of a single operation
type Env struct {
	Caller Account
	// Timestamp is the authoritative current time in seconds
	Timestamp uint64
	// Period identifies the spending period for the rolling cap
	Period uint64
	// TreasuryValue is the treasury's value before the operation's own transfer
	TreasuryValue *big.Int
}

// ProposalRequest holds the caller-supplied fields of a new proposal
type ProposalRequest struct {
	Description string
	Receiver    Account
	Amount      *big.Int
	ExternalRef uint64
}

// LifetimeInfo is the reputation oracle's record for an account
type LifetimeInfo struct {
	TotalHeartbeats uint64
	LifetimeScore   uint64
	TimeSinceLast   uint64
	TimeRemaining   uint64
}

type FundStats struct {
	TreasuryValue *big.Int
	TotalShares   *big.Int
	MemberCount   uint64
	ProposalCount uint64
	MinReputation uint64
}

type FundParams struct {
	MinDeposit     *big.Int
	MinReputation  uint64
	VotingPeriod   uint64
	TimelockPeriod uint64
	QuorumPercent  uint64
	ProposalCapBps uint64
	PeriodCapBps   uint64
	DeadShares     *big.Int
}

type Member struct {
	Account Account
	Shares  *big.Int
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
