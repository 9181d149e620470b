/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package admin

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/omnibridge/registry"
)

// Metrics holds the Prometheus collectors spec.md §7/SPEC_FULL.md §6 call
// for: session counts, per-session sequence-gap/backpressure counters. It
// never sits on the session hot path — the loop goroutine never calls into
// this package; only the admin boundary and its registry listeners do.
type Metrics struct {
	mu sync.Mutex

	sessionsTotal   prometheus.Gauge
	sessionsByState *prometheus.GaugeVec
	sequenceGaps    *prometheus.CounterVec
	backpressure    *prometheus.CounterVec

	states map[string]string // sessionId -> last observed state label
}

func newMetrics() *Metrics {
	return &Metrics{
		sessionsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "omnibridge",
			Name:      "sessions_total",
			Help:      "Number of sessions currently registered.",
		}),
		sessionsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "omnibridge",
			Name:      "sessions_by_state",
			Help:      "Number of sessions currently in each connection state.",
		}, []string{"state"}),
		sequenceGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnibridge",
			Name:      "sequence_gaps_total",
			Help:      "Inbound sequence gaps observed, by session id.",
		}, []string{"session_id"}),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnibridge",
			Name:      "outbound_backpressure_total",
			Help:      "Outbound ring buffer backpressure events, by session id.",
		}, []string{"session_id"}),
		states: make(map[string]string),
	}
}

// Register registers every collector against reg, for wiring into a
// process-wide prometheus.Registerer such as prometheus.DefaultRegisterer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.sessionsTotal, m.sessionsByState, m.sequenceGaps, m.backpressure} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeRegister(d registry.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsTotal.Inc()
	m.states[d.ID] = d.State.String()
	m.sessionsByState.WithLabelValues(d.State.String()).Inc()
}

func (m *Metrics) observeUnregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsTotal.Dec()
	if st, ok := m.states[id]; ok {
		m.sessionsByState.WithLabelValues(st).Dec()
		delete(m.states, id)
	}
}

func (m *Metrics) observeStateChange(d registry.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.states[d.ID]; ok {
		m.sessionsByState.WithLabelValues(old).Dec()
	}
	m.states[d.ID] = d.State.String()
	m.sessionsByState.WithLabelValues(d.State.String()).Inc()
}

// ObserveSequenceGap increments the sequence-gap counter for id. Wired by
// cmd/omnibridge from a netloop.Engine's OnError hook when the underlying
// error carries errors.SequenceGap.
func (m *Metrics) ObserveSequenceGap(id string) { m.sequenceGaps.WithLabelValues(id).Inc() }

// ObserveBackpressure increments the backpressure counter for id.
func (m *Metrics) ObserveBackpressure(id string) { m.backpressure.WithLabelValues(id).Inc() }
