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

// Package gate provides the membership checks consulted before a deposit:
// identity lookups that map an account to a registered agent name and
// reputation lookups that return an agent's lifetime record.
package gate

import (
	"errors"

	"github.com/blinklabs-io/treasury/fund"
)

// Gate answers both membership questions for an account
type Gate interface {
	fund.IdentityRegistry
	fund.ReputationOracle
}

// Agent is a registered identity and its reputation record
type Agent struct {
	Name            string `yaml:"name"             json:"name"`
	TotalHeartbeats uint64 `yaml:"total_heartbeats" json:"total_heartbeats"`
	LifetimeScore   uint64 `yaml:"lifetime_score"   json:"lifetime_score"`
	TimeSinceLast   uint64 `yaml:"time_since_last"  json:"time_since_last"`
	TimeRemaining   uint64 `yaml:"time_remaining"   json:"time_remaining"`
}

func (a Agent) LifetimeInfo() fund.LifetimeInfo {
	return fund.LifetimeInfo{
		TotalHeartbeats: a.TotalHeartbeats,
		LifetimeScore:   a.LifetimeScore,
		TimeSinceLast:   a.TimeSinceLast,
		TimeRemaining:   a.TimeRemaining,
	}
}

var ErrUnexpectedStatus = errors.New("unexpected response status")
