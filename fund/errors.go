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
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuthorization
	KindState
	KindGuardrail
	KindArithmetic
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindGuardrail:
		return "guardrail"
	case KindArithmetic:
		return "arithmetic"
	}
	return "unknown"
}

// Validation
var (
	ErrBelowMinimumDeposit = errors.New("amount below minimum deposit")
	ErrZeroShares          = errors.New("share amount must be greater than zero")
	ErrInsufficientShares  = errors.New("share amount exceeds balance")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrMissingTreasury     = errors.New("treasury value not supplied")
	ErrInvalidAmount       = errors.New("amount must not be negative")
)

// Authorization
var (
	ErrNotRegistered          = errors.New("account is not identity-registered")
	ErrInsufficientReputation = errors.New("account reputation below minimum")
	ErrNotMember              = errors.New("account is not a member")
	ErrNotProposer            = errors.New("only the proposer may cancel")
)

// State
var (
	ErrAlreadyVoted      = errors.New("account has already voted on this proposal")
	ErrVotingClosed      = errors.New("voting window has closed")
	ErrVotingOpen        = errors.New("voting window is still open")
	ErrTimelockActive    = errors.New("time-lock has not elapsed")
	ErrQuorumLost        = errors.New("quorum no longer met")
	ErrInvalidTransition = errors.New("invalid proposal status transition")
)

// Guardrail
var (
	ErrProposalCapExceeded  = errors.New("amount exceeds per-proposal cap")
	ErrPeriodCapExceeded    = errors.New("amount exceeds period spending cap")
	ErrInsufficientTreasury = errors.New("treasury value below proposal amount")
)

// Arithmetic
var (
	ErrInsolvent        = errors.New("treasury value is not positive")
	ErrZeroSharesMinted = errors.New("deposit mints zero shares")
	ErrZeroPayout       = errors.New("withdrawal pays out zero")
)

// Error is returned by every fund operation that is rejected by the engine's
// own rules. Reason is one of the sentinel errors above.
type Error struct {
	Op     string
	Kind   ErrorKind
	Reason error
	// Detail is optional context such as the offending proposal status
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Reason
}

func newError(op string, kind ErrorKind, reason error) *Error {
	return &Error{Op: op, Kind: kind, Reason: reason}
}

func transitionError(op string, from, to ProposalStatus) *Error {
	return &Error{
		Op:     op,
		Kind:   KindState,
		Reason: ErrInvalidTransition,
		Detail: fmt.Sprintf("%s -> %s", from, to),
	}
}

// KindOf returns the kind of a fund error, or KindUnknown for errors that
// did not originate from the engine's rules
func KindOf(err error) ErrorKind {
	var fundErr *Error
	if errors.As(err, &fundErr) {
		return fundErr.Kind
	}
	return KindUnknown
}
