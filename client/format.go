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

package client

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the number of fractional digits of one whole token
const DefaultDecimals = 18

// FormatAmount renders an integer amount of base units as a decimal with the
// given number of fractional digits, trimming trailing zeros
func FormatAmount(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return d.Shift(-decimals).String(), nil
}

// ParseAmount converts a decimal such as "1.5" to base units. More
// fractional digits than decimals is an error
func ParseAmount(value string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", value, err)
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return "", fmt.Errorf("amount %q has more than %d decimal places", value, decimals)
	}
	if shifted.IsNegative() {
		return "", fmt.Errorf("amount %q is negative", value)
	}
	return shifted.BigInt().String(), nil
}

// FormatBps renders basis points as a percentage
func FormatBps(bps uint64) string {
	return decimal.NewFromInt(int64(bps)).Shift(-2).String() + "%" //nolint:gosec // bps are small
}
