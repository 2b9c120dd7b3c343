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

// FundStateID is the primary key of the single fund state row
const FundStateID = 1

// FundState holds the fund-wide counters
type FundState struct {
	ID              uint         `gorm:"primarykey"`
	TotalShares     types.BigInt `gorm:"type:text;not null"`
	ProposalCount   uint64       `gorm:"not null"`
	TreasuryBalance types.BigInt `gorm:"type:text;not null"`
	// Sequence of the last journal entry reflected in this row
	JournalSeq uint64 `gorm:"not null;default:0"`
}

func (FundState) TableName() string {
	return "fund_state"
}

// Member is a share holder. Rows are deleted when the balance reaches zero,
// and ID order is join order.
type Member struct {
	ID      uint         `gorm:"primarykey"`
	Account string       `gorm:"uniqueIndex;size:128;not null"`
	Shares  types.BigInt `gorm:"type:text;not null"`
}

func (Member) TableName() string {
	return "member"
}

// PeriodSpend is the cumulative disbursement for a spending period
type PeriodSpend struct {
	Period uint64       `gorm:"primarykey;autoIncrement:false"`
	Spent  types.BigInt `gorm:"type:text;not null"`
}

func (PeriodSpend) TableName() string {
	return "period_spend"
}
