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
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/treasury/database/plugin/blob"
	"github.com/blinklabs-io/treasury/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

// Database pairs the SQLite fund state with the badger event journal
type Database struct {
	logger       *slog.Logger
	blob         blob.BlobStore
	metadata     metadata.MetadataStore
	promRegistry prometheus.Registerer
	metrics      *databaseMetrics
	dataDir      string
	blobTuning   blob.Tuning
	// commitMu serializes writers of the fund state row
	commitMu sync.Mutex
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.promRegistry != nil {
		d.initMetrics()
	}
	if err := d.checkJournalCheckpoint(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance. An empty data dir keeps everything in
// memory
func New(opts ...DatabaseOptionFunc) (*Database, error) {
	db := &Database{}
	for _, opt := range opts {
		opt(db)
	}
	metadataDb, err := metadata.New(db.dataDir, db.logger, db.promRegistry)
	if err != nil {
		return nil, err
	}
	db.metadata = metadataDb
	blobDb, err := blob.New(
		db.dataDir,
		db.logger,
		db.promRegistry,
		db.blobTuning,
	)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db.blob = blobDb
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
