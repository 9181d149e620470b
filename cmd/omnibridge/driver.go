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

package main

import (
	"sync/atomic"
	"time"

	liberr "github.com/nabbar/omnibridge/errors"
	"github.com/nabbar/omnibridge/logging"
	"github.com/nabbar/omnibridge/session"
)

// orderDriver is the representative sample client of spec.md §6: once its
// session reaches LOGGED_ON it fires warmup-orders + test-orders through
// sendOrder, paced at rate per second (as fast as possible when rate is 0),
// repeated count times. No order matching or fill simulation happens here
// per spec.md's non-goals; fillRate only annotates the closing summary
// against the orders actually acknowledged via OnMessage.
type orderDriver struct {
	log *logging.Logger

	auto         bool
	warmupOrders int
	testOrders   int
	numOrders    int
	rate         float64
	count        int
	fillRate     float64

	sendOrder      func(i int) error
	onBackpressure func()

	sent   atomic.Int64
	acked  atomic.Int64
	loggedOn chan struct{}
	done     chan struct{}
}

func newOrderDriver(cfg *config, send func(i int) error, onBackpressure func(), log *logging.Logger) *orderDriver {
	return &orderDriver{
		log:            log,
		auto:           cfg.Auto,
		warmupOrders:   cfg.WarmupOrders,
		testOrders:     cfg.TestOrders,
		numOrders:      cfg.NumOrders,
		rate:           cfg.Rate,
		count:          cfg.Count,
		fillRate:       cfg.FillRate,
		sendOrder:      send,
		onBackpressure: onBackpressure,
		loggedOn:       make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (d *orderDriver) OnSessionLogon(s *session.Base) {
	d.log.Info("session logged on", logging.Fields{"sessionId": s.ID()})
	select {
	case <-d.loggedOn:
	default:
		close(d.loggedOn)
	}
	if d.auto {
		go d.run()
	} else {
		close(d.done)
	}
}

func (d *orderDriver) OnSessionDisconnected(s *session.Base, reason session.DisconnectReason) {
	d.log.Warning("session disconnected", logging.Fields{"sessionId": s.ID(), "reason": string(reason)})
}

func (d *orderDriver) OnMessage(s *session.Base, raw []byte) {
	d.acked.Add(1)
}

// run sends count repetitions of warmupOrders+testOrders (or of numOrders
// when set), pacing sends at rate per
// second. Warmup sends are not distinguished from test sends beyond pacing
// since spec.md's core has no concept of a measurement window - that
// belongs to the external load-test harness this driver stands in for.
func (d *orderDriver) run() {
	defer close(d.done)

	total := d.numOrders
	if total <= 0 {
		total = d.warmupOrders + d.testOrders
	}
	if total <= 0 {
		return
	}
	if d.count <= 0 {
		d.count = 1
	}

	var pacer *time.Ticker
	if d.rate > 0 {
		pacer = time.NewTicker(time.Duration(float64(time.Second) / d.rate))
		defer pacer.Stop()
	}

	i := 0
	for rep := 0; rep < d.count; rep++ {
		for n := 0; n < total; n++ {
			if pacer != nil {
				<-pacer.C
			}
			if err := d.sendOrder(i); err != nil {
				d.log.Error("send order failed", logging.Fields{"index": i, "error": err.Error()})
				if liberr.IsCode(err, liberr.Backpressure) && d.onBackpressure != nil {
					d.onBackpressure()
				}
				continue
			}
			d.sent.Add(1)
			i++
		}
	}
}

// waitLoggedOn blocks until the session reaches LOGGED_ON or timeout
// elapses, returning false on timeout - the caller maps that to exit code 1
// per spec.md §6.
func (d *orderDriver) waitLoggedOn(timeout time.Duration) bool {
	select {
	case <-d.loggedOn:
		return true
	case <-time.After(timeout):
		return false
	}
}

// waitDone blocks until the driver's run (or the no-auto immediate close)
// completes.
func (d *orderDriver) waitDone() {
	<-d.done
}

// summary reports the run's sent/acked counters against the configured
// fill-rate expectation.
func (d *orderDriver) summary() (sent, acked int64, expectedAcked float64) {
	sent = d.sent.Load()
	acked = d.acked.Load()
	expectedAcked = float64(sent) * d.fillRate
	return
}
