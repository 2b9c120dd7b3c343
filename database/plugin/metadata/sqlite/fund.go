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

package sqlite

import (
	"errors"
	"math/big"

	"github.com/blinklabs-io/treasury/database/models"
	"github.com/blinklabs-io/treasury/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetFundState returns the fund counters, or a zeroed row when nothing has
// been committed yet
func (d *MetadataStoreSqlite) GetFundState(
	txn types.Txn,
) (*models.FundState, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.FundState{}
	result := db.First(ret, models.FundStateID)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}
		return &models.FundState{
			ID:              models.FundStateID,
			TotalShares:     types.NewBigInt(nil),
			TreasuryBalance: types.NewBigInt(nil),
		}, nil
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetFundState(
	state *models.FundState,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	state.ID = models.FundStateID
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{
				"total_shares",
				"proposal_count",
				"treasury_balance",
				"journal_seq",
			},
		),
	}).Create(state).Error
}

// GetMembers returns all share holders in join order
func (d *MetadataStoreSqlite) GetMembers(
	txn types.Txn,
) ([]models.Member, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Member
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetMember records a share balance. A zero balance removes the member so
// that a later deposit re-joins at the end of the member list
func (d *MetadataStoreSqlite) SetMember(
	account string,
	shares *big.Int,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if shares == nil || shares.Sign() == 0 {
		return db.Where("account = ?", account).
			Delete(&models.Member{}).Error
	}
	tmpMember := models.Member{
		Account: account,
		Shares:  types.NewBigInt(shares),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"shares"}),
	}).Create(&tmpMember).Error
}

// GetProposals returns all proposals ordered by ID
func (d *MetadataStoreSqlite) GetProposals(
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"status", "yes_votes", "no_votes", "passed_at"},
		),
	}).Create(proposal).Error
}

// GetVoteRecords returns all vote records in casting order
func (d *MetadataStoreSqlite) GetVoteRecords(
	txn types.Txn,
) ([]models.VoteRecord, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.VoteRecord
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVoteRecord inserts a vote or updates the retraction flag of an existing
// one
func (d *MetadataStoreSqlite) SetVoteRecord(
	vote *models.VoteRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "voter"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"retracted"}),
	}).Create(vote).Error
}

func (d *MetadataStoreSqlite) GetPeriodSpends(
	txn types.Txn,
) ([]models.PeriodSpend, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.PeriodSpend
	if result := db.Order("period").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetPeriodSpend(
	spend *models.PeriodSpend,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"spent"}),
	}).Create(spend).Error
}

func (d *MetadataStoreSqlite) AddTransfer(
	transfer *models.TreasuryTransfer,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(transfer).Error
}

// GetTransfers returns treasury transfers in insertion order
func (d *MetadataStoreSqlite) GetTransfers(
	offset int,
	limit int,
	txn types.Txn,
) ([]models.TreasuryTransfer, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TreasuryTransfer
	result := db.Order("id").Offset(offset).Limit(limit).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
