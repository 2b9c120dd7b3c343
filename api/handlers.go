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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/treasury/event"
	"github.com/blinklabs-io/treasury/fund"
	"github.com/gorilla/mux"
)

const (
	maxBodyBytes     = 1 << 20
	maxAccountLength = 128
)

var (
	errMissingAccount = errors.New("missing " + AccountHeader + " header")
	errInvalidAmount  = errors.New("amount must be a non-negative decimal integer")
)

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// errorStatus maps an engine error to its HTTP status
func errorStatus(err error) int {
	if errors.Is(err, fund.ErrProposalNotFound) {
		return http.StatusNotFound
	}
	switch fund.KindOf(err) {
	case fund.KindValidation:
		return http.StatusBadRequest
	case fund.KindAuthorization:
		return http.StatusForbidden
	case fund.KindState:
		return http.StatusConflict
	case fund.KindGuardrail, fund.KindArithmetic:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"request failed",
			"path", r.URL.Path,
			"request_id", RequestId(r.Context()),
			"error", err,
		)
		writeError(w, status, "internal error, see server log")
		return
	}
	writeError(w, status, err.Error())
}

func parseAmount(value string) (*big.Int, error) {
	ret, ok := new(big.Int).SetString(value, 10)
	if !ok || ret.Sign() < 0 {
		return nil, errInvalidAmount
	}
	return ret, nil
}

// decodeBody reads a JSON request body into v, answering 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			fmt.Sprintf("invalid request body: %s", err),
		)
		return false
	}
	return true
}

// callerAccount returns the account named by the request header
func callerAccount(w http.ResponseWriter, r *http.Request) (fund.Account, bool) {
	account := r.Header.Get(AccountHeader)
	if account == "" {
		writeError(w, http.StatusBadRequest, errMissingAccount.Error())
		return "", false
	}
	if len(account) > maxAccountLength {
		writeError(w, http.StatusBadRequest, "account name too long")
		return "", false
	}
	return fund.Account(account), true
}

func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	ret, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return ret, true
}

// handleRoot handles GET / and returns API metadata.
func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "treasury",
		Version: apiVersion,
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := a.treasury.TreasuryBalance(r.Context()); err != nil {
		a.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (a *API) handleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAccount(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), caller)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	shares, err := a.fund.Deposit(r.Context(), env, amount)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DepositResponse{
		Account: string(caller),
		Amount:  amount.String(),
		Shares:  shares.String(),
	})
}

func (a *API) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAccount(w, r)
	if !ok {
		return
	}
	var req WithdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	shares, err := parseAmount(req.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), caller)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	payout, err := a.fund.Withdraw(r.Context(), env, shares)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawResponse{
		Account: string(caller),
		Shares:  shares.String(),
		Payout:  payout.String(),
	})
}

func (a *API) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAccount(w, r)
	if !ok {
		return
	}
	var req ProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Receiver == "" || len(req.Receiver) > maxAccountLength {
		writeError(w, http.StatusBadRequest, "invalid receiver")
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), caller)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	id, err := a.fund.SubmitProposal(r.Context(), env, fund.ProposalRequest{
		Description: req.Description,
		Receiver:    fund.Account(req.Receiver),
		Amount:      amount,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	a.writeProposal(w, r, http.StatusCreated, id)
}

func (a *API) writeProposal(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	id uint64,
) {
	p, err := a.fund.Proposal(id)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, status, proposalResponse(p))
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), caller)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	if err := a.fund.Vote(r.Context(), env, id, req.Support); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	rec, ok := a.fund.VoteRecord(id, caller)
	if !ok {
		writeError(w, http.StatusInternalServerError, "vote not recorded")
		return
	}
	writeJSON(w, http.StatusOK, voteResponse(rec))
}

func (a *API) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), fund.Account(r.Header.Get(AccountHeader)))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	status, err := a.fund.FinalizeVoting(r.Context(), env, id)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ProposalId: id, Status: status})
}

func (a *API) handleExecute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), caller)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	transfer, err := a.fund.ExecuteProposal(r.Context(), env, id)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse(transfer))
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), caller)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	if err := a.fund.CancelProposal(r.Context(), env, id); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	a.writeProposal(w, r, http.StatusOK, id)
}

func (a *API) handleExpire(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	env, err := a.env(r.Context(), fund.Account(r.Header.Get(AccountHeader)))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	if err := a.fund.ExpireProposal(r.Context(), env, id); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	a.writeProposal(w, r, http.StatusOK, id)
}

func (a *API) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil || amount.Sign() == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal integer")
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	balance, err := a.treasury.CreditTreasury(r.Context(), amount, req.Memo, a.now())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance.String()})
}

func (a *API) handleProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	a.writeProposal(w, r, http.StatusOK, id)
}

func (a *API) handleProposals(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proposals := a.fund.Proposals(params.From, uint64(params.Count)) //nolint:gosec // count is clamped
	SetPaginationHeaders(w, a.fund.Stats(nil).ProposalCount)
	writeJSON(w, http.StatusOK, proposalsResponse(proposals))
}

func (a *API) handleActiveProposals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, proposalsResponse(a.fund.ActiveProposals(a.now())))
}

func (a *API) handleVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	votes, err := a.fund.VoteRecords(id)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	ret := make([]VoteResponse, 0, len(votes))
	for _, v := range votes {
		ret = append(ret, voteResponse(v))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleVoteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := a.fund.Proposal(id); err != nil {
		a.writeFailure(w, r, err)
		return
	}
	rec, ok := a.fund.VoteRecord(id, fund.Account(mux.Vars(r)["account"]))
	if !ok {
		writeError(w, http.StatusNotFound, "account has not voted on this proposal")
		return
	}
	writeJSON(w, http.StatusOK, voteResponse(rec))
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	balance, err := a.treasury.TreasuryBalance(r.Context())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	stats := a.fund.Stats(balance)
	writeJSON(w, http.StatusOK, StatsResponse{
		TreasuryValue: amountString(stats.TreasuryValue),
		TotalShares:   amountString(stats.TotalShares),
		VotingShares:  amountString(a.fund.VotingShares()),
		MemberCount:   stats.MemberCount,
		ProposalCount: stats.ProposalCount,
		MinReputation: stats.MinReputation,
	})
}

func (a *API) handleSharePrice(w http.ResponseWriter, r *http.Request) {
	balance, err := a.treasury.TreasuryBalance(r.Context())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SharePriceResponse{
		SharePrice: a.fund.SharePrice(balance).String(),
		Scale:      fund.SharePriceScale.String(),
	})
}

func (a *API) handleMembers(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	members := a.fund.Members(params.From, uint64(params.Count)) //nolint:gosec // count is clamped
	ret := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		ret = append(ret, MemberResponse{
			Account: string(m.Account),
			Shares:  amountString(m.Shares),
		})
	}
	SetPaginationHeaders(w, a.fund.Stats(nil).MemberCount)
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleMember(w http.ResponseWriter, r *http.Request) {
	account := fund.Account(mux.Vars(r)["account"])
	if !a.fund.IsMember(account) {
		writeError(w, http.StatusNotFound, "account is not a member")
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{
		Account: string(account),
		Shares:  amountString(a.fund.MemberShares(account)),
	})
}

func (a *API) writePeriod(w http.ResponseWriter, r *http.Request, period uint64) {
	balance, err := a.treasury.TreasuryBalance(r.Context())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	_, periodCap := a.fund.Caps(balance)
	writeJSON(w, http.StatusOK, PeriodResponse{
		Period: period,
		Spent:  amountString(a.fund.PeriodSpent(period)),
		Cap:    periodCap.String(),
	})
}

func (a *API) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	a.writePeriod(w, r, a.now()/a.config.PeriodLength)
}

func (a *API) handlePeriodSpent(w http.ResponseWriter, r *http.Request) {
	period, ok := pathUint(w, r, "period")
	if !ok {
		return
	}
	a.writePeriod(w, r, period)
}

func (a *API) handleConfig(w http.ResponseWriter, _ *http.Request) {
	params := a.fund.Params()
	writeJSON(w, http.StatusOK, ConfigResponse{
		MinDeposit:     amountString(params.MinDeposit),
		MinReputation:  params.MinReputation,
		VotingPeriod:   params.VotingPeriod,
		TimelockPeriod: params.TimelockPeriod,
		QuorumPercent:  params.QuorumPercent,
		ProposalCapBps: params.ProposalCapBps,
		PeriodCapBps:   params.PeriodCapBps,
		DeadShares:     amountString(params.DeadShares),
		PeriodLength:   a.config.PeriodLength,
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	head, err := a.treasury.JournalHead(r.Context())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	entries, err := a.treasury.JournalEntries(r.Context(), params.From, params.Count)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	ret := make([]EventResponse, 0, len(entries))
	for _, entry := range entries {
		data, err := entry.Decode()
		if err != nil {
			a.writeFailure(w, r, fmt.Errorf("decode journal entry %d: %w", entry.Seq, err))
			return
		}
		ret = append(ret, EventResponse{
			Seq:       entry.Seq,
			Type:      string(entry.Type),
			Timestamp: entry.Timestamp,
			Data:      eventData(data),
		})
	}
	SetPaginationHeaders(w, head)
	writeJSON(w, http.StatusOK, ret)
}

// eventData renders amounts in event payloads as decimal strings
func eventData(data any) any {
	switch d := data.(type) {
	case *event.DepositEvent:
		return map[string]any{
			"account": d.Account,
			"amount":  amountString(d.Amount),
			"shares":  amountString(d.Shares),
		}
	case *event.WithdrawEvent:
		return map[string]any{
			"account": d.Account,
			"shares":  amountString(d.Shares),
			"payout":  amountString(d.Payout),
		}
	case *event.VoteEvent:
		return map[string]any{
			"proposal_id": d.ProposalId,
			"voter":       d.Voter,
			"support":     d.Support,
			"weight":      amountString(d.Weight),
		}
	case *event.ProposalExecutedEvent:
		return map[string]any{
			"proposal_id": d.ProposalId,
			"receiver":    d.Receiver,
			"amount":      amountString(d.Amount),
			"period":      d.Period,
		}
	case *event.RageQuitEvent:
		return map[string]any{
			"proposal_id": d.ProposalId,
			"account":     d.Account,
			"weight":      amountString(d.Weight),
			"support":     d.Support,
		}
	}
	return data
}

func (a *API) handleTreasury(w http.ResponseWriter, r *http.Request) {
	balance, err := a.treasury.TreasuryBalance(r.Context())
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance.String()})
}

func (a *API) handleTransfers(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	transfers, err := a.treasury.Transfers(
		r.Context(),
		int(params.From), //nolint:gosec // offsets are small
		params.Count,
	)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	ret := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		ret = append(ret, transferModelResponse(t))
	}
	writeJSON(w, http.StatusOK, ret)
}
