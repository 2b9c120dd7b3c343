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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type DatabaseOptionFunc func(*Database)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) DatabaseOptionFunc {
	return func(d *Database) {
		d.logger = logger
	}
}

// WithDataDir specifies the directory for persistent storage
func WithDataDir(dataDir string) DatabaseOptionFunc {
	return func(d *Database) {
		d.dataDir = dataDir
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) DatabaseOptionFunc {
	return func(d *Database) {
		d.promRegistry = registry
	}
}

// WithJournalCacheSizes sets the journal store's block and index cache sizes
// in bytes. Zero keeps the default
func WithJournalCacheSizes(blockCache, indexCache uint64) DatabaseOptionFunc {
	return func(d *Database) {
		d.blobTuning.BlockCacheSize = blockCache
		d.blobTuning.IndexCacheSize = indexCache
	}
}

// WithJournalGcInterval sets how often the journal's value log is compacted
func WithJournalGcInterval(interval time.Duration) DatabaseOptionFunc {
	return func(d *Database) {
		d.blobTuning.GcInterval = interval
	}
}
