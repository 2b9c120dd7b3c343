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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fundMetrics struct {
	members          prometheus.Gauge
	totalShares      prometheus.Gauge
	proposals        prometheus.Gauge
	deposits         prometheus.Counter
	withdrawals      prometheus.Counter
	votes            prometheus.Counter
	rageQuits        prometheus.Counter
	proposalOutcomes *prometheus.CounterVec
	operationErrors  *prometheus.CounterVec
}

func (f *Fund) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	f.metrics = &fundMetrics{}
	f.metrics.members = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "treasury_fund_members",
		Help: "number of members holding shares",
	})
	f.metrics.totalShares = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "treasury_fund_total_shares",
		Help: "shares outstanding including the dead allotment",
	})
	f.metrics.proposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "treasury_fund_proposals",
		Help: "number of proposals ever submitted",
	})
	f.metrics.deposits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "treasury_fund_deposits_total",
		Help: "number of successful deposits",
	})
	f.metrics.withdrawals = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "treasury_fund_withdrawals_total",
		Help: "number of successful withdrawals",
	})
	f.metrics.votes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "treasury_fund_votes_total",
		Help: "number of votes cast",
	})
	f.metrics.rageQuits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "treasury_fund_rage_quit_retractions_total",
		Help: "number of vote retractions caused by withdrawals",
	})
	f.metrics.proposalOutcomes = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treasury_fund_proposal_outcomes_total",
			Help: "number of proposals reaching each outcome",
		},
		[]string{"outcome"},
	)
	f.metrics.operationErrors = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treasury_fund_operation_errors_total",
			Help: "number of rejected operations by operation and error kind",
		},
		[]string{"op", "kind"},
	)
}

// updateGauges must be called with the state lock held
func (f *Fund) updateGauges() {
	if f.metrics == nil {
		return
	}
	f.metrics.members.Set(float64(len(f.state.members)))
	shares, _ := new(big.Float).SetInt(f.state.totalShares).Float64()
	f.metrics.totalShares.Set(shares)
	f.metrics.proposals.Set(float64(f.state.proposalCount))
}

func (f *Fund) recordEvents(d *Delta) {
	if f.metrics == nil {
		return
	}
	for _, evt := range d.events {
		switch evt.Type {
		case event.DepositEventType:
			f.metrics.deposits.Inc()
		case event.WithdrawEventType:
			f.metrics.withdrawals.Inc()
		case event.VoteEventType:
			f.metrics.votes.Inc()
		case event.RageQuitEventType:
			f.metrics.rageQuits.Inc()
		case event.ProposalPassedEventType:
			f.metrics.proposalOutcomes.WithLabelValues("passed").Inc()
		case event.ProposalExecutedEventType:
			f.metrics.proposalOutcomes.WithLabelValues("executed").Inc()
		case event.ProposalCancelledEventType:
			f.metrics.proposalOutcomes.WithLabelValues("cancelled").Inc()
		case event.ProposalFailedEventType:
			if data, ok := evt.Data.(event.ProposalFailedEvent); ok {
				f.metrics.proposalOutcomes.WithLabelValues("failed_" + data.Reason).
					Inc()
			}
		}
	}
}

func (f *Fund) recordError(op string, err error) {
	if f.metrics == nil {
		return
	}
	f.metrics.operationErrors.WithLabelValues(op, KindOf(err).String()).Inc()
}
