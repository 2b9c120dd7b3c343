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

package types_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/blinklabs-io/treasury/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntValueScan(t *testing.T) {
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	testDefs := []struct {
		name     string
		value    types.BigInt
		expected string
	}{
		{name: "huge", value: types.NewBigInt(huge), expected: "123456789012345678901234567890"},
		{name: "nil", value: types.NewBigInt(nil), expected: "0"},
		{name: "zero value", value: types.BigInt{}, expected: "0"},
		{name: "negative", value: types.NewBigInt(big.NewInt(-7)), expected: "-7"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			out, err := testDef.value.Value()
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, out)
			var scanned types.BigInt
			require.NoError(t, scanned.Scan(out))
			assert.Equal(t, testDef.expected, scanned.String())
		})
	}
}

func TestBigIntScanInputs(t *testing.T) {
	var v types.BigInt
	require.NoError(t, v.Scan([]byte("-42")))
	assert.Equal(t, int64(-42), v.Int64())
	require.NoError(t, v.Scan(int64(9)))
	assert.Equal(t, int64(9), v.Int64())
	assert.Error(t, v.Scan(3.5))
	assert.Error(t, v.Scan("abc"))
}

func TestNewBigIntCopies(t *testing.T) {
	src := big.NewInt(100)
	v := types.NewBigInt(src)
	src.SetInt64(1)
	assert.Equal(t, int64(100), v.Int64())
	out := v.Big()
	out.SetInt64(2)
	assert.Equal(t, int64(100), v.Int64())
	assert.Equal(t, int64(0), types.BigInt{}.Big().Int64())
}

func TestJournalKeyOrdering(t *testing.T) {
	prev := types.JournalKey(1)
	for _, seq := range []uint64{2, 255, 256, 1 << 32, 1<<64 - 1} {
		key := types.JournalKey(seq)
		assert.Equal(t, -1, bytes.Compare(prev, key), "seq %d", seq)
		assert.True(t, bytes.HasPrefix(key, []byte(types.JournalKeyPrefix)))
		got, err := types.JournalKeySeq(key)
		require.NoError(t, err)
		assert.Equal(t, seq, got)
		prev = key
	}
	_, err := types.JournalKeySeq([]byte("j123"))
	assert.Error(t, err)
}
