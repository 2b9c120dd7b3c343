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
	"fmt"
)

// JournalCheckpointError means the fund state and the journal were not
// committed together. The fund state row records the journal sequence it
// reflects, which must match the journal head
type JournalCheckpointError struct {
	FundSeq    uint64
	JournalSeq uint64
}

func (e JournalCheckpointError) Error() string {
	return fmt.Sprintf(
		"journal checkpoint mismatch: fund state at %d, journal head at %d",
		e.FundSeq,
		e.JournalSeq,
	)
}

func (d *Database) checkJournalCheckpoint() error {
	fundState, err := d.metadata.GetFundState(nil)
	if err != nil {
		return fmt.Errorf("failed to read fund state: %w", err)
	}
	txn := NewBlobOnlyTxn(d, false)
	defer txn.Release()
	head, err := d.journalSeq(txn)
	if err != nil {
		return fmt.Errorf("failed to read journal head: %w", err)
	}
	if fundState.JournalSeq != head {
		return JournalCheckpointError{
			FundSeq:    fundState.JournalSeq,
			JournalSeq: head,
		}
	}
	return nil
}
