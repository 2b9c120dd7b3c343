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

// Package archive ships exports of the fund event journal to object storage
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// Target is an object store that archives are written to
type Target interface {
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// JournalSource is the journal an Archiver exports from
type JournalSource interface {
	JournalHead(ctx context.Context) (uint64, error)
	ExportJournal(ctx context.Context, w io.Writer, from uint64) (int, error)
}

type TargetConfig struct {
	// URL is gs://bucket/prefix or s3://bucket/prefix
	URL string
	// CredentialsFile is a GCS service account key file
	CredentialsFile string
	// Region overrides the AWS region from the environment
	Region string
}

// NewTarget opens the object store named by cfg.URL
func NewTarget(ctx context.Context, cfg TargetConfig) (Target, error) {
	scheme, bucket, prefix, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "gs":
		return NewGCSTarget(ctx, bucket, prefix, cfg.CredentialsFile)
	case "s3":
		return NewS3Target(ctx, bucket, prefix, cfg.Region)
	}
	return nil, fmt.Errorf("unsupported archive scheme: %s", scheme)
}

// ParseURL splits an archive URL into scheme, bucket and key prefix
func ParseURL(archiveUrl string) (string, string, string, error) {
	u, err := url.Parse(archiveUrl)
	if err != nil {
		return "", "", "", fmt.Errorf("parse archive URL: %w", err)
	}
	if u.Scheme != "gs" && u.Scheme != "s3" {
		return "", "", "", fmt.Errorf(
			"archive URL must start with gs:// or s3://: %s",
			archiveUrl,
		)
	}
	if u.Host == "" {
		return "", "", "", errors.New("archive URL has no bucket")
	}
	return u.Scheme, u.Host, strings.Trim(u.Path, "/"), nil
}

// Result describes one uploaded archive
type Result struct {
	Key     string
	From    uint64
	To      uint64
	Entries int
}

// Archiver uploads journal entries that have not been archived yet
type Archiver struct {
	source  JournalSource
	target  Target
	logger  *slog.Logger
	mu      sync.Mutex
	next    uint64
	stopCh  chan struct{}
	stopped chan struct{}
}

func NewArchiver(
	source JournalSource,
	target Target,
	logger *slog.Logger,
) *Archiver {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Archiver{
		source: source,
		target: target,
		logger: logger.With("component", "archive"),
		next:   1,
	}
}

// ObjectKey names the archive holding entries from..to
func ObjectKey(from, to uint64) string {
	return fmt.Sprintf("journal-%020d-%020d.cbor.zst", from, to)
}

// Archive uploads everything from the given sequence to the current head.
// A zero from continues after the last successful upload. It returns a nil
// result when there is nothing new
func (a *Archiver) Archive(ctx context.Context, from uint64) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if from == 0 {
		from = a.next
	}
	head, err := a.source.JournalHead(ctx)
	if err != nil {
		return nil, err
	}
	if head < from {
		return nil, nil
	}
	var buf bytes.Buffer
	count, err := a.source.ExportJournal(ctx, &buf, from)
	if err != nil {
		return nil, fmt.Errorf("export journal: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	// Entries committed after JournalHead are included by the export
	to := from + uint64(count) - 1 //nolint:gosec // count is non-negative
	ret := &Result{
		Key:     ObjectKey(from, to),
		From:    from,
		To:      to,
		Entries: count,
	}
	if err := a.target.Put(ctx, ret.Key, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("upload %s: %w", ret.Key, err)
	}
	a.next = to + 1
	a.logger.Info(
		fmt.Sprintf("archived %d journal entries", count),
		"key", ret.Key,
		"bytes", buf.Len(),
	)
	return ret, nil
}

// Start archives new entries every interval until Stop is called
func (a *Archiver) Start(interval time.Duration) {
	a.stopCh = make(chan struct{})
	a.stopped = make(chan struct{})
	go func() {
		defer close(a.stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, err := a.Archive(ctx, 0); err != nil {
					a.logger.Error("failed to archive journal", "error", err)
				}
				cancel()
			case <-a.stopCh:
				return
			}
		}
	}()
}

// Stop halts periodic archiving and closes the target
func (a *Archiver) Stop() error {
	if a.stopCh != nil {
		close(a.stopCh)
		<-a.stopped
		a.stopCh = nil
	}
	return a.target.Close()
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
