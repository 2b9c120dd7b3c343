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

// Package client is a typed client for the treasury REST API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/treasury/api"
)

// Error is a non-2xx answer from the server
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("treasury API: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound reports whether err is a 404 answer
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseUrl    string
	account    string
	httpClient *http.Client
}

type ClientOptionFunc func(*Client)

// WithAccount sets the caller account sent with every request
func WithAccount(account string) ClientOptionFunc {
	return func(c *Client) {
		c.account = account
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseUrl string, opts ...ClientOptionFunc) *Client {
	c := &Client{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	out any,
) error {
	reqUrl := c.baseUrl + "/api/v0" + path
	if len(query) > 0 {
		reqUrl += "?" + query.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqUrl, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.account != "" {
		req.Header.Set(api.AccountHeader, c.account)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Message = errResp.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func page(from uint64, count int) url.Values {
	query := url.Values{}
	query.Set("from", strconv.FormatUint(from, 10))
	if count > 0 {
		query.Set("count", strconv.Itoa(count))
	}
	return query
}

func proposalPath(id uint64, suffix string) string {
	return "/proposals/" + strconv.FormatUint(id, 10) + suffix
}

func (c *Client) Deposit(ctx context.Context, amount string) (*api.DepositResponse, error) {
	var ret api.DepositResponse
	err := c.do(ctx, http.MethodPost, "/deposits", nil, api.DepositRequest{Amount: amount}, &ret)
	return &ret, err
}

func (c *Client) Withdraw(ctx context.Context, shares string) (*api.WithdrawResponse, error) {
	var ret api.WithdrawResponse
	err := c.do(ctx, http.MethodPost, "/withdrawals", nil, api.WithdrawRequest{Shares: shares}, &ret)
	return &ret, err
}

func (c *Client) SubmitProposal(
	ctx context.Context,
	req api.ProposalRequest,
) (*api.ProposalResponse, error) {
	var ret api.ProposalResponse
	err := c.do(ctx, http.MethodPost, "/proposals", nil, req, &ret)
	return &ret, err
}

func (c *Client) Vote(ctx context.Context, id uint64, support bool) (*api.VoteResponse, error) {
	var ret api.VoteResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/votes"), nil, api.VoteRequest{Support: support}, &ret)
	return &ret, err
}

func (c *Client) Finalize(ctx context.Context, id uint64) (*api.StatusResponse, error) {
	var ret api.StatusResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/finalize"), nil, nil, &ret)
	return &ret, err
}

func (c *Client) Execute(ctx context.Context, id uint64) (*api.TransferResponse, error) {
	var ret api.TransferResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/execute"), nil, nil, &ret)
	return &ret, err
}

func (c *Client) Cancel(ctx context.Context, id uint64) (*api.ProposalResponse, error) {
	var ret api.ProposalResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/cancel"), nil, nil, &ret)
	return &ret, err
}

func (c *Client) Expire(ctx context.Context, id uint64) (*api.ProposalResponse, error) {
	var ret api.ProposalResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/expire"), nil, nil, &ret)
	return &ret, err
}

// Credit records treasury income that mints no shares
func (c *Client) Credit(ctx context.Context, amount string, memo string) (*api.BalanceResponse, error) {
	var ret api.BalanceResponse
	err := c.do(ctx, http.MethodPost, "/treasury/credits", nil, api.CreditRequest{Amount: amount, Memo: memo}, &ret)
	return &ret, err
}

func (c *Client) Proposal(ctx context.Context, id uint64) (*api.ProposalResponse, error) {
	var ret api.ProposalResponse
	err := c.do(ctx, http.MethodGet, proposalPath(id, ""), nil, nil, &ret)
	return &ret, err
}

func (c *Client) Proposals(ctx context.Context, from uint64, count int) ([]api.ProposalResponse, error) {
	var ret []api.ProposalResponse
	err := c.do(ctx, http.MethodGet, "/proposals", page(from, count), nil, &ret)
	return ret, err
}

func (c *Client) ActiveProposals(ctx context.Context) ([]api.ProposalResponse, error) {
	var ret []api.ProposalResponse
	err := c.do(ctx, http.MethodGet, "/proposals/active", nil, nil, &ret)
	return ret, err
}

func (c *Client) Votes(ctx context.Context, id uint64) ([]api.VoteResponse, error) {
	var ret []api.VoteResponse
	err := c.do(ctx, http.MethodGet, proposalPath(id, "/votes"), nil, nil, &ret)
	return ret, err
}

// HasVoted reports whether account voted on the proposal
func (c *Client) HasVoted(ctx context.Context, id uint64, account string) (bool, error) {
	err := c.do(ctx, http.MethodGet, proposalPath(id, "/votes/"+url.PathEscape(account)), nil, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			// An unknown proposal is still an error
			if _, err := c.Proposal(ctx, id); err != nil {
				return false, err
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) Stats(ctx context.Context) (*api.StatsResponse, error) {
	var ret api.StatsResponse
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &ret)
	return &ret, err
}

func (c *Client) SharePrice(ctx context.Context) (*api.SharePriceResponse, error) {
	var ret api.SharePriceResponse
	err := c.do(ctx, http.MethodGet, "/share-price", nil, nil, &ret)
	return &ret, err
}

func (c *Client) Members(ctx context.Context, from uint64, count int) ([]api.MemberResponse, error) {
	var ret []api.MemberResponse
	err := c.do(ctx, http.MethodGet, "/members", page(from, count), nil, &ret)
	return ret, err
}

// MemberShares returns the share balance of account, zero for non-members
func (c *Client) MemberShares(ctx context.Context, account string) (string, error) {
	var ret api.MemberResponse
	err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(account), nil, nil, &ret)
	if err != nil {
		if IsNotFound(err) {
			return "0", nil
		}
		return "", err
	}
	return ret.Shares, nil
}

func (c *Client) PeriodSpent(ctx context.Context, period uint64) (*api.PeriodResponse, error) {
	var ret api.PeriodResponse
	err := c.do(ctx, http.MethodGet, "/periods/"+strconv.FormatUint(period, 10)+"/spent", nil, nil, &ret)
	return &ret, err
}

func (c *Client) CurrentPeriod(ctx context.Context) (*api.PeriodResponse, error) {
	var ret api.PeriodResponse
	err := c.do(ctx, http.MethodGet, "/periods/current", nil, nil, &ret)
	return &ret, err
}

func (c *Client) Config(ctx context.Context) (*api.ConfigResponse, error) {
	var ret api.ConfigResponse
	err := c.do(ctx, http.MethodGet, "/config", nil, nil, &ret)
	return &ret, err
}

func (c *Client) Events(ctx context.Context, from uint64, count int) ([]api.EventResponse, error) {
	var ret []api.EventResponse
	err := c.do(ctx, http.MethodGet, "/events", page(from, count), nil, &ret)
	return ret, err
}

func (c *Client) Treasury(ctx context.Context) (*api.BalanceResponse, error) {
	var ret api.BalanceResponse
	err := c.do(ctx, http.MethodGet, "/treasury", nil, nil, &ret)
	return &ret, err
}

func (c *Client) Transfers(ctx context.Context, from uint64, count int) ([]api.TransferResponse, error) {
	var ret []api.TransferResponse
	err := c.do(ctx, http.MethodGet, "/treasury/transfers", page(from, count), nil, &ret)
	return ret, err
}
