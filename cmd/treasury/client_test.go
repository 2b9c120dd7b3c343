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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFlagsAmounts(t *testing.T) {
	f := &clientFlags{decimals: 6}
	in, err := f.amountIn("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000", in)
	assert.Equal(t, "1.5", f.amountOut("1500000"))
	// Unparseable values are shown as-is
	assert.Equal(t, "n/a", f.amountOut("n/a"))

	_, err = f.amountIn("0.0000001")
	require.Error(t, err)

	f.raw = true
	in, err = f.amountIn("1500000")
	require.NoError(t, err)
	assert.Equal(t, "1500000", in)
	assert.Equal(t, "1500000", f.amountOut("1500000"))
}

func TestParseId(t *testing.T) {
	id, err := parseId("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	_, err = parseId("-1")
	require.Error(t, err)
	_, err = parseId("abc")
	require.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(0))
	assert.Equal(t, "1970-01-01T00:16:40Z", formatTime(1000))
}

func TestClientCommandsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range clientCommands() {
		name := cmd.Name()
		assert.False(t, seen[name], "duplicate command %s", name)
		seen[name] = true
	}
	for _, name := range []string{"deposit", "withdraw", "propose", "vote", "finalize", "execute", "cancel", "expire", "credit", "proposals", "events"} {
		assert.True(t, seen[name], "missing command %s", name)
	}
}
