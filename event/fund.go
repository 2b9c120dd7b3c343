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

package event

import "math/big"

const (
	DepositEventType           EventType = "fund.deposit"
	WithdrawEventType          EventType = "fund.withdraw"
	ProposalCreatedEventType   EventType = "fund.proposal_created"
	VoteEventType              EventType = "fund.vote"
	ProposalPassedEventType    EventType = "fund.proposal_passed"
	ProposalFailedEventType    EventType = "fund.proposal_failed"
	ProposalExecutedEventType  EventType = "fund.proposal_executed"
	ProposalCancelledEventType EventType = "fund.proposal_cancelled"
	RageQuitEventType          EventType = "fund.rage_quit"
)

// FundEventTypes lists every event type emitted by the fund engine, in the
// order a single operation may emit them
var FundEventTypes = []EventType{
	DepositEventType,
	WithdrawEventType,
	ProposalCreatedEventType,
	VoteEventType,
	ProposalPassedEventType,
	ProposalFailedEventType,
	ProposalExecutedEventType,
	ProposalCancelledEventType,
	RageQuitEventType,
}

// DepositEvent is emitted when a member buys into the fund
type DepositEvent struct {
	Account string   `cbor:"1,keyasint" json:"account"`
	Amount  *big.Int `cbor:"2,keyasint" json:"amount"`
	Shares  *big.Int `cbor:"3,keyasint" json:"shares"`
}

// WithdrawEvent is emitted when a member redeems shares for a payout
type WithdrawEvent struct {
	Account string   `cbor:"1,keyasint" json:"account"`
	Shares  *big.Int `cbor:"2,keyasint" json:"shares"`
	Payout  *big.Int `cbor:"3,keyasint" json:"payout"`
}

type ProposalCreatedEvent struct {
	ProposalId  uint64 `cbor:"1,keyasint" json:"proposal_id"`
	Proposer    string `cbor:"2,keyasint" json:"proposer"`
	ExternalRef uint64 `cbor:"3,keyasint" json:"external_ref"`
	CreatedAt   uint64 `cbor:"4,keyasint" json:"created_at"`
}

type VoteEvent struct {
	ProposalId uint64   `cbor:"1,keyasint" json:"proposal_id"`
	Voter      string   `cbor:"2,keyasint" json:"voter"`
	Support    bool     `cbor:"3,keyasint" json:"support"`
	Weight     *big.Int `cbor:"4,keyasint" json:"weight"`
}

type ProposalPassedEvent struct {
	ProposalId uint64 `cbor:"1,keyasint" json:"proposal_id"`
	PassedAt   uint64 `cbor:"2,keyasint" json:"passed_at"`
}

// ProposalFailedEvent carries the reason the proposal failed: "vote",
// "expired" or "quorum-lost"
type ProposalFailedEvent struct {
	ProposalId uint64 `cbor:"1,keyasint" json:"proposal_id"`
	Reason     string `cbor:"2,keyasint" json:"reason"`
}

type ProposalExecutedEvent struct {
	ProposalId uint64   `cbor:"1,keyasint" json:"proposal_id"`
	Receiver   string   `cbor:"2,keyasint" json:"receiver"`
	Amount     *big.Int `cbor:"3,keyasint" json:"amount"`
	Period     uint64   `cbor:"4,keyasint" json:"period"`
}

type ProposalCancelledEvent struct {
	ProposalId uint64 `cbor:"1,keyasint" json:"proposal_id"`
	Proposer   string `cbor:"2,keyasint" json:"proposer"`
}

// RageQuitEvent is emitted once per proposal whose tally lost the weight
// of a withdrawing voter
type RageQuitEvent struct {
	ProposalId uint64   `cbor:"1,keyasint" json:"proposal_id"`
	Account    string   `cbor:"2,keyasint" json:"account"`
	Weight     *big.Int `cbor:"3,keyasint" json:"weight"`
	Support    bool     `cbor:"4,keyasint" json:"support"`
}

// NewFundEventData returns an empty payload value for the given fund event
// type, for decoding stored events
func NewFundEventData(eventType EventType) (any, bool) {
	switch eventType {
	case DepositEventType:
		return &DepositEvent{}, true
	case WithdrawEventType:
		return &WithdrawEvent{}, true
	case ProposalCreatedEventType:
		return &ProposalCreatedEvent{}, true
	case VoteEventType:
		return &VoteEvent{}, true
	case ProposalPassedEventType:
		return &ProposalPassedEvent{}, true
	case ProposalFailedEventType:
		return &ProposalFailedEvent{}, true
	case ProposalExecutedEventType:
		return &ProposalExecutedEvent{}, true
	case ProposalCancelledEventType:
		return &ProposalCancelledEvent{}, true
	case RageQuitEventType:
		return &RageQuitEvent{}, true
	}
	return nil, false
}
