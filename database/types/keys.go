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

package types

import (
	"encoding/binary"
	"errors"
)

const (
	JournalKeyPrefix = "j"
	JournalSeqKey    = "meta_journal_seq"
)

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// JournalKey sorts journal entries by sequence under a common prefix
func JournalKey(seq uint64) []byte {
	key := []byte(JournalKeyPrefix)
	return append(key, Uint64ToBytes(seq)...)
}

// JournalKeySeq extracts the sequence from a key built by JournalKey
func JournalKeySeq(key []byte) (uint64, error) {
	if len(key) != len(JournalKeyPrefix)+8 {
		return 0, errors.New("invalid journal key length")
	}
	return binary.BigEndian.Uint64(key[len(JournalKeyPrefix):]), nil
}
