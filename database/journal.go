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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/blinklabs-io/treasury/database/types"
	"github.com/blinklabs-io/treasury/event"
	"github.com/blinklabs-io/treasury/fund"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// JournalEntry is one committed fund event as stored in the journal
type JournalEntry struct {
	_         struct{} `cbor:",toarray"`
	Seq       uint64
	Type      event.EventType
	Timestamp int64
	Data      cbor.RawMessage
}

// Time returns the time the event was emitted
func (e *JournalEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Decode returns the typed event payload
func (e *JournalEntry) Decode() (any, error) {
	ret, ok := event.NewFundEventData(e.Type)
	if !ok {
		return nil, fmt.Errorf("unknown journal event type: %s", e.Type)
	}
	if err := cbor.Unmarshal(e.Data, ret); err != nil {
		return nil, fmt.Errorf("decode journal entry %d: %w", e.Seq, err)
	}
	return ret, nil
}

func (d *Database) journalSeq(txn *Txn) (uint64, error) {
	val, err := d.blob.Get(txn.Blob(), []byte(types.JournalSeqKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, errors.New("invalid journal sequence value")
	}
	return binary.BigEndian.Uint64(val), nil
}

// appendJournal writes the delta's events and returns the new journal head
func (d *Database) appendJournal(txn *Txn, delta *fund.Delta) (uint64, error) {
	seq, err := d.journalSeq(txn)
	if err != nil {
		return 0, err
	}
	events := delta.Events()
	if len(events) == 0 {
		return seq, nil
	}
	for _, evt := range events {
		data, err := cbor.Marshal(evt.Data)
		if err != nil {
			return 0, fmt.Errorf("encode %s event: %w", evt.Type, err)
		}
		seq++
		entry := JournalEntry{
			Seq:       seq,
			Type:      evt.Type,
			Timestamp: evt.Timestamp.UnixMilli(),
			Data:      data,
		}
		entryCbor, err := cbor.Marshal(&entry)
		if err != nil {
			return 0, err
		}
		if err := d.blob.Set(txn.Blob(), types.JournalKey(seq), entryCbor); err != nil {
			return 0, err
		}
	}
	err = d.blob.Set(
		txn.Blob(),
		[]byte(types.JournalSeqKey),
		types.Uint64ToBytes(seq),
	)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// JournalHead returns the sequence of the newest journal entry
func (d *Database) JournalHead(ctx context.Context) (uint64, error) {
	txn := NewBlobOnlyTxn(d, false)
	defer txn.Release()
	return d.journalSeq(txn)
}

// JournalEntries returns up to count entries starting at sequence from.
// Sequences start at 1
func (d *Database) JournalEntries(
	ctx context.Context,
	from uint64,
	count int,
) ([]JournalEntry, error) {
	_, span := tracer.Start(ctx, "database.JournalEntries")
	defer span.End()
	ret := []JournalEntry{}
	err := d.walkJournal(from, func(entry JournalEntry, _ []byte) (bool, error) {
		ret = append(ret, entry)
		return count <= 0 || len(ret) < count, nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (d *Database) walkJournal(
	from uint64,
	fn func(JournalEntry, []byte) (bool, error),
) error {
	txn := NewBlobOnlyTxn(d, false)
	defer txn.Release()
	return d.blob.Iterate(
		txn.Blob(),
		[]byte(types.JournalKeyPrefix),
		types.JournalKey(max(from, 1)),
		func(_, val []byte) (bool, error) {
			var entry JournalEntry
			if err := cbor.Unmarshal(val, &entry); err != nil {
				return false, err
			}
			return fn(entry, val)
		},
	)
}

// ExportJournal writes entries from the given sequence onward to w as a
// zstd-compressed CBOR sequence and returns the number of entries written
func (d *Database) ExportJournal(
	ctx context.Context,
	w io.Writer,
	from uint64,
) (int, error) {
	_, span := tracer.Start(ctx, "database.ExportJournal")
	defer span.End()
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}
	count := 0
	err = d.walkJournal(from, func(_ JournalEntry, raw []byte) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := enc.Write(raw); err != nil {
			return false, err
		}
		count++
		return true, nil
	})
	if err != nil {
		_ = enc.Close()
		return count, err
	}
	if err := enc.Close(); err != nil {
		return count, err
	}
	d.logger.Info(
		fmt.Sprintf("exported %d journal entries", count),
		"component", "database",
		"from", from,
	)
	return count, nil
}

// ReadJournalExport decodes an export produced by ExportJournal
func ReadJournalExport(r io.Reader) ([]JournalEntry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	cborDec := cbor.NewDecoder(dec)
	var ret []JournalEntry
	for {
		var entry JournalEntry
		if err := cborDec.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				return ret, nil
			}
			return nil, err
		}
		ret = append(ret, entry)
	}
}
