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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/treasury/archive"
	"github.com/blinklabs-io/treasury/database"
	"github.com/blinklabs-io/treasury/internal/config"
)

var ErrNoArchiveUrl = errors.New("no archive URL configured")

func openDatabase(cfg *config.Config, logger *slog.Logger) (*database.Database, error) {
	db, err := database.New(
		database.WithDataDir(cfg.DatabasePath),
		database.WithLogger(logger),
		database.WithJournalCacheSizes(
			cfg.Journal.BlockCacheSize,
			cfg.Journal.IndexCacheSize,
		),
	)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Archive uploads the journal from the given sequence to the configured
// archive in a single object. It returns a nil result when there is nothing
// to upload
func Archive(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	from uint64,
) (*archive.Result, error) {
	if cfg.Archive.Url == "" {
		return nil, ErrNoArchiveUrl
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	target, err := archive.NewTarget(
		ctx,
		archive.TargetConfig{
			URL:             cfg.Archive.Url,
			CredentialsFile: cfg.Archive.CredentialsFile,
			Region:          cfg.Archive.Region,
		},
	)
	if err != nil {
		return nil, err
	}
	archiver := archive.NewArchiver(db, target, logger)
	defer archiver.Stop()
	if from == 0 {
		from = 1
	}
	return archiver.Archive(ctx, from)
}

// Export writes the journal from the given sequence to a local file in the
// archive format
func Export(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	path string,
	from uint64,
) (int, error) {
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	count, err := db.ExportJournal(ctx, f, from)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return count, fmt.Errorf("failed to export journal: %w", err)
	}
	return count, nil
}
