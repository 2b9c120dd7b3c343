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

package fund

import (
	"math/big"

	"github.com/blinklabs-io/treasury/event"
)

// shareLedger issues and redeems shares against the treasury value.
// All division truncates, which favors the fund over the caller.
type shareLedger struct {
	state  *State
	params *FundParams
}

// votingShares is the total excluding the dead allotment, floored at zero
func (l shareLedger) votingShares() *big.Int {
	ret := new(big.Int).Sub(l.state.totalShares, l.params.DeadShares)
	if ret.Sign() < 0 {
		ret.SetInt64(0)
	}
	return ret
}

func (l shareLedger) sharePrice(treasuryValue *big.Int) *big.Int {
	if l.state.totalShares.Sign() == 0 {
		return new(big.Int).Set(SharePriceScale)
	}
	ret := new(big.Int).Mul(treasuryValue, SharePriceScale)
	return ret.Quo(ret, l.state.totalShares)
}

// planDeposit mints shares for amount. treasuryValue is the value held
// before this deposit arrives.
func (l shareLedger) planDeposit(
	d *Delta,
	env Env,
	amount *big.Int,
) (*big.Int, error) {
	const op = "deposit"
	var minted *big.Int
	newTotal := new(big.Int).Set(l.state.totalShares)
	if l.state.totalShares.Sign() == 0 {
		// First deposit mints 1:1 plus the unattributed dead allotment
		minted = new(big.Int).Set(amount)
		newTotal.Add(newTotal, l.params.DeadShares)
	} else {
		if env.TreasuryValue.Sign() <= 0 {
			return nil, newError(op, KindArithmetic, ErrInsolvent)
		}
		minted = new(big.Int).Mul(amount, l.state.totalShares)
		minted.Quo(minted, env.TreasuryValue)
	}
	if minted.Sign() == 0 {
		return nil, newError(op, KindArithmetic, ErrZeroSharesMinted)
	}
	newTotal.Add(newTotal, minted)
	d.TotalShares = newTotal
	d.setBalance(
		env.Caller,
		new(big.Int).Add(l.state.balance(env.Caller), minted),
	)
	d.addTransfer(Transfer{
		Kind:      TransferDeposit,
		Account:   env.Caller,
		Amount:    new(big.Int).Set(amount),
		Timestamp: env.Timestamp,
	})
	d.emit(event.DepositEventType, event.DepositEvent{
		Account: string(env.Caller),
		Amount:  new(big.Int).Set(amount),
		Shares:  new(big.Int).Set(minted),
	})
	return minted, nil
}

// planWithdraw burns shares and computes the payout at the current value
func (l shareLedger) planWithdraw(
	d *Delta,
	env Env,
	shares *big.Int,
) (*big.Int, error) {
	const op = "withdraw"
	if shares.Sign() <= 0 {
		return nil, newError(op, KindValidation, ErrZeroShares)
	}
	bal := l.state.balance(env.Caller)
	if shares.Cmp(bal) > 0 {
		return nil, newError(op, KindValidation, ErrInsufficientShares)
	}
	payout := new(big.Int).Mul(shares, env.TreasuryValue)
	payout.Quo(payout, l.state.totalShares)
	if payout.Sign() <= 0 {
		return nil, newError(op, KindArithmetic, ErrZeroPayout)
	}
	d.TotalShares = new(big.Int).Sub(l.state.totalShares, shares)
	d.setBalance(env.Caller, new(big.Int).Sub(bal, shares))
	d.addTransfer(Transfer{
		Kind:      TransferWithdraw,
		Account:   env.Caller,
		Amount:    new(big.Int).Set(payout),
		Timestamp: env.Timestamp,
	})
	d.emit(event.WithdrawEventType, event.WithdrawEvent{
		Account: string(env.Caller),
		Shares:  new(big.Int).Set(shares),
		Payout:  new(big.Int).Set(payout),
	})
	return payout, nil
}
