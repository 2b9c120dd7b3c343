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
	"fmt"
	"math/big"
)

// guardrails enforces the spending caps. Both caps are basis points of the
// treasury value supplied with the current operation.
type guardrails struct {
	state  *State
	params *FundParams
}

func bpsOf(value *big.Int, bps uint64) *big.Int {
	ret := new(big.Int).Mul(value, new(big.Int).SetUint64(bps))
	return ret.Quo(ret, big.NewInt(BpsDenominator))
}

func (g guardrails) proposalCap(treasuryValue *big.Int) *big.Int {
	return bpsOf(treasuryValue, g.params.ProposalCapBps)
}

func (g guardrails) periodCap(treasuryValue *big.Int) *big.Int {
	return bpsOf(treasuryValue, g.params.PeriodCapBps)
}

// checkProposal applies the per-proposal cap at submission
func (g guardrails) checkProposal(
	op string,
	amount *big.Int,
	treasuryValue *big.Int,
) error {
	limit := g.proposalCap(treasuryValue)
	if amount.Cmp(limit) > 0 {
		return &Error{
			Op:     op,
			Kind:   KindGuardrail,
			Reason: ErrProposalCapExceeded,
			Detail: fmt.Sprintf("amount %s, cap %s", amount, limit),
		}
	}
	return nil
}

// checkExecution applies the period cap and the treasury balance check,
// returning the period's accumulator after the disbursement
func (g guardrails) checkExecution(
	op string,
	env Env,
	amount *big.Int,
) (*big.Int, error) {
	limit := g.periodCap(env.TreasuryValue)
	newSpent := new(big.Int).Add(g.state.spent(env.Period), amount)
	if newSpent.Cmp(limit) > 0 {
		return nil, &Error{
			Op:     op,
			Kind:   KindGuardrail,
			Reason: ErrPeriodCapExceeded,
			Detail: fmt.Sprintf(
				"period %d spent %s, cap %s",
				env.Period,
				newSpent,
				limit,
			),
		}
	}
	if env.TreasuryValue.Cmp(amount) < 0 {
		return nil, newError(op, KindGuardrail, ErrInsufficientTreasury)
	}
	return newSpent, nil
}
