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

package blob

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/treasury/database/plugin/blob/badger"
	"github.com/blinklabs-io/treasury/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

type BlobStore interface {
	Close() error
	NewTransaction(bool) types.Txn
	Get(types.Txn, []byte) ([]byte, error)
	Set(types.Txn, []byte, []byte) error
	Iterate(types.Txn, []byte, []byte, func(key, val []byte) (bool, error)) error
}

// Tuning sizes the blob store. Zero values keep the store defaults
type Tuning struct {
	BlockCacheSize uint64
	IndexCacheSize uint64
	GcInterval     time.Duration
}

// New returns a badger-backed blob store. An empty data dir keeps the store
// in memory
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	tuning Tuning,
) (BlobStore, error) {
	opts := []badger.BlobStoreBadgerOptionFunc{
		badger.WithDataDir(dataDir),
		badger.WithLogger(logger),
		badger.WithPromRegistry(promRegistry),
	}
	if tuning.BlockCacheSize > 0 {
		opts = append(opts, badger.WithBlockCacheSize(tuning.BlockCacheSize))
	}
	if tuning.IndexCacheSize > 0 {
		opts = append(opts, badger.WithIndexCacheSize(tuning.IndexCacheSize))
	}
	if tuning.GcInterval > 0 {
		opts = append(opts, badger.WithGcInterval(tuning.GcInterval))
	}
	return badger.New(opts...)
}
