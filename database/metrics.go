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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type databaseMetrics struct {
	commitDuration prometheus.Histogram
	commitErrors   prometheus.Counter
	journalEntries prometheus.Counter
}

func (d *Database) initMetrics() {
	promautoFactory := promauto.With(d.promRegistry)
	d.metrics = &databaseMetrics{
		commitDuration: promautoFactory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "treasury_database_commit_duration_seconds",
				Help:    "time taken to commit a fund operation",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
		commitErrors: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "treasury_database_commit_errors_total",
			Help: "fund operations that failed to commit",
		}),
		journalEntries: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "treasury_database_journal_entries_total",
			Help: "events appended to the journal",
		}),
	}
}
