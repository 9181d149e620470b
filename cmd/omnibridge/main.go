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

// Command omnibridge is the connectivity engine's process entrypoint: it
// wires one session (protocol/role/credentials chosen by flags or a config
// file) to a netloop.Engine, hosts the admin HTTP/WebSocket surface beside
// it, and - when --auto is set - drives the session with the
// warmup/test/rate/count order pattern of spec.md §6's sample-client CLI
// surface. Exit code 0 on a clean run, 1 on a startup, connect or
// logged-on-timeout failure.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/omnibridge/admin"
	liberr "github.com/nabbar/omnibridge/errors"
	loglvl "github.com/nabbar/omnibridge/logger/level"
	"github.com/nabbar/omnibridge/logging"
	"github.com/nabbar/omnibridge/lifecycle"
	"github.com/nabbar/omnibridge/netloop"
	"github.com/nabbar/omnibridge/persist"
	"github.com/nabbar/omnibridge/protocol/ouch"
	"github.com/nabbar/omnibridge/registry"
	"github.com/nabbar/omnibridge/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	var cfg *config

	root := &cobra.Command{
		Use:   "omnibridge",
		Short: "Multi-protocol trading session connectivity engine",
		SilenceUsage: true,
	}
	bindFlags(root.Flags(), v)

	exitCode := 0
	root.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		exitCode = runEngine(cfg)
		return nil
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// runEngine builds and runs the whole process: persistence, the netloop
// engine and its one session, the admin surface, and (if configured) the
// order-driving load pattern, returning the process's exit code.
func runEngine(cfg *config) int {
	log := logging.New(loglvl.Parse(cfg.LogLevel), os.Stdout)

	reg := registry.New()
	eng := netloop.New()
	eng.SetLatencyMode(cfg.Latency)

	persistComp := persist.NewComponent(cfg.SessionID, cfg.PersistDir, func() int64 { return time.Now().UnixMilli() })
	eng.PersistFunc(func(id string) session.PersistSink { return persistComp.Log() })

	sess, codec, send, err := buildSession(cfg, eng)
	if err != nil {
		log.Error("unsupported session configuration", logging.Fields{"error": err.Error()})
		return 1
	}

	ctrl := newController(eng, reg)
	ctrl.register(sess.Base())

	svc := admin.NewService(reg, ctrl)
	if err := svc.Metrics().Register(prometheus.DefaultRegisterer); err != nil {
		log.Warning("metrics registration failed", logging.Fields{"error": err.Error()})
	}

	eng.OnError(func(id string, e error) {
		log.Error("session error", logging.Fields{"sessionId": id, "error": e.Error()})
		switch {
		case liberr.IsCode(e, liberr.SequenceGap), liberr.IsCode(e, liberr.SequenceTooLow):
			svc.Metrics().ObserveSequenceGap(id)
		case liberr.IsCode(e, liberr.Backpressure):
			svc.Metrics().ObserveBackpressure(id)
		}
	})

	driver := newOrderDriver(cfg, send, func() { svc.Metrics().ObserveBackpressure(cfg.SessionID) }, log)
	sess.Base().AddListener(driver)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	eng.RegisterInitiator(cfg.SessionID, sess, codec, addr, netloop.ReconnectPolicy{})
	reg.Register(cfg.SessionID, sess.Config().Protocol, session.RoleInitiator, session.Disconnected, time.Now())

	lc := lifecycle.New()
	engComp := newEngineComponent(cfg.SessionID, eng, []string{cfg.SessionID})
	adminComp := newAdminComponent(cfg.AdminAddr, svc, log)
	lc.Register(persistComp)
	lc.Register(engComp)
	lc.Register(adminComp)

	if err := lc.Initialize(); err != nil {
		log.Error("initialize failed", logging.Fields{"error": err.Error()})
		return 1
	}
	if err := lc.StartActive(); err != nil {
		log.Error("start failed", logging.Fields{"error": err.Error()})
		return 1
	}
	defer func() { _ = lc.Stop() }()

	poller := newStatusPoller(eng, reg, []adminBase{sess.Base()}, 250*time.Millisecond)
	go poller.run()
	defer poller.stop()

	if !driver.waitLoggedOn(cfg.ConnectTimeout) {
		log.Error("session did not log on within connect-timeout", logging.Fields{
			"sessionId": cfg.SessionID,
			"timeout":   cfg.ConnectTimeout.String(),
		})
		return 1
	}

	driver.waitDone()

	sent, acked, expected := driver.summary()
	log.Info("run complete", logging.Fields{
		"sessionId":     cfg.SessionID,
		"sent":          sent,
		"acked":         acked,
		"expectedAcked": expected,
	})

	return 0
}

// sessionHandle is the subset of the protocol-specific session machines
// runEngine needs generically: access to the embedded *session.Base plus
// the machine's own Config() (for the registered protocol tag).
type sessionHandle interface {
	netloop.Session
	Base() *session.Base
}

// buildSession constructs the one session the CLI drives plus its codec
// and an EnterOrder/NewOrderSingle closure the load driver calls, based on
// cfg.Protocol. Only initiator sessions are supported by this sample
// client, matching spec.md §6's "CLI surface of representative sample
// clients" framing.
func buildSession(cfg *config, eng *netloop.Engine) (sessionHandle, netloop.Codec, func(i int) error, error) {
	base := session.Config{
		ID:                cfg.SessionID,
		Role:              session.RoleInitiator,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ResetOnLogon:      true,
	}

	switch cfg.Protocol {
	case "FIX":
		s := session.NewFIXSession(base, cfg.BeginString, cfg.SenderCompID, cfg.TargetCompID)
		send := func(i int) error {
			clOrdID := "ORD" + strconv.Itoa(i)
			return s.SendNewOrderSingle(clOrdID, "AAPL", ouchSideToFIX(i), 100, 100.00)
		}
		return fixHandle{s}, netloop.FIXCodec(0), send, nil

	case "OUCHv42", "OUCHv50":
		version := ouch.V50
		if cfg.Protocol == "OUCHv42" {
			version = ouch.V42
		}
		s := session.NewOUCHSession(base, version, cfg.Username, cfg.Password)
		send := func(i int) error {
			side := ouch.SideBuy
			if i%2 == 1 {
				side = ouch.SideSell
			}
			_, err := s.EnterOrder("AAPL", side, 100, 1000000)
			return err
		}
		return ouchHandle{s}, netloop.OUCHCodec(), send, nil

	default:
		return nil, netloop.Codec{}, nil, fmt.Errorf("unsupported protocol %q (supported by this sample client: FIX, OUCHv42, OUCHv50)", cfg.Protocol)
	}
}

func ouchSideToFIX(i int) string {
	if i%2 == 1 {
		return "2"
	}
	return "1"
}

type fixHandle struct{ *session.FIXSession }

func (h fixHandle) Base() *session.Base { return h.FIXSession.Base }

type ouchHandle struct{ *session.OUCHSession }

func (h ouchHandle) Base() *session.Base { return h.OUCHSession.Base }
