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

package metadata

import (
	"log/slog"
	"math/big"

	"github.com/blinklabs-io/treasury/database/models"
	"github.com/blinklabs-io/treasury/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/treasury/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	Close() error
	DB() *gorm.DB
	Transaction() types.Txn

	GetFundState(types.Txn) (*models.FundState, error)
	SetFundState(*models.FundState, types.Txn) error
	GetMembers(types.Txn) ([]models.Member, error)
	SetMember(string, *big.Int, types.Txn) error
	GetProposals(types.Txn) ([]models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetVoteRecords(types.Txn) ([]models.VoteRecord, error)
	SetVoteRecord(*models.VoteRecord, types.Txn) error
	GetPeriodSpends(types.Txn) ([]models.PeriodSpend, error)
	SetPeriodSpend(*models.PeriodSpend, types.Txn) error
	AddTransfer(*models.TreasuryTransfer, types.Txn) error
	GetTransfers(int, int, types.Txn) ([]models.TreasuryTransfer, error)
}

// New returns a SQLite metadata store. An empty data dir keeps the store in
// memory
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	return sqlite.New(
		sqlite.WithDataDir(dataDir),
		sqlite.WithLogger(logger),
		sqlite.WithPromRegistry(promRegistry),
	)
}
