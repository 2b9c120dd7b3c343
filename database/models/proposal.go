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

package models

import "github.com/blinklabs-io/treasury/database/types"

// Proposal is a disbursement proposal. Proposals are never deleted.
type Proposal struct {
	ID          uint64       `gorm:"primarykey;autoIncrement:false"`
	Proposer    string       `gorm:"index;size:128;not null"`
	Description string       `gorm:"not null"`
	Receiver    string       `gorm:"size:128;not null"`
	Amount      types.BigInt `gorm:"type:text;not null"`
	Status      uint8        `gorm:"index;not null"`
	YesVotes    types.BigInt `gorm:"type:text;not null"`
	NoVotes     types.BigInt `gorm:"type:text;not null"`
	CreatedAt   uint64       `gorm:"autoCreateTime:false;not null"`
	PassedAt    uint64       `gorm:"not null"`
	ExternalRef uint64       `gorm:"not null"`
}

func (Proposal) TableName() string {
	return "proposal"
}

// VoteRecord is a cast vote. ID order is casting order, which also gives
// each voter's vote index.
type VoteRecord struct {
	ID         uint         `gorm:"primarykey"`
	ProposalID uint64       `gorm:"uniqueIndex:idx_vote_unique,priority:1;not null"`
	Voter      string       `gorm:"index;uniqueIndex:idx_vote_unique,priority:2;size:128;not null"`
	Direction  uint8        `gorm:"not null"`
	Weight     types.BigInt `gorm:"type:text;not null"`
	Retracted  bool         `gorm:"not null"`
}

func (VoteRecord) TableName() string {
	return "vote_record"
}

// TreasuryTransfer records every movement of treasury value
type TreasuryTransfer struct {
	ID         uint         `gorm:"primarykey"`
	Kind       string       `gorm:"index;size:32;not null"`
	Account    string       `gorm:"index;size:128"`
	Amount     types.BigInt `gorm:"type:text;not null"`
	ProposalID uint64
	Timestamp  uint64 `gorm:"not null"`
	Memo       string
}

func (TreasuryTransfer) TableName() string {
	return "treasury_transfer"
}
