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

package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

type gateMetrics struct {
	lookups *prometheus.CounterVec
}

func newGateMetrics(
	promRegistry prometheus.Registerer,
	name string,
) *gateMetrics {
	if promRegistry == nil {
		return nil
	}
	promautoFactory := promauto.With(promRegistry)
	return &gateMetrics{
		lookups: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treasury_gate_" + name + "_lookups_total",
				Help: "membership gate lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

func (m *gateMetrics) observe(kind, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(kind, result).Inc()
}
