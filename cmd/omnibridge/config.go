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
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// config carries every knob of spec.md §6's CLI surface plus the
// connectivity details a representative sample client needs to actually
// open a session: protocol/role selection, credentials, and the process's
// own ambient wiring (admin address, persistence directory, log level).
// Values are resolved by viper from, in increasing precedence: a config
// file (--config), OMNIBRIDGE_-prefixed environment variables, then
// command-line flags - the teacher's own layered-config idiom.
type config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	SessionID string `mapstructure:"session"`

	NumOrders    int     `mapstructure:"num-orders"`
	Latency      bool    `mapstructure:"latency"`
	WarmupOrders int     `mapstructure:"warmup-orders"`
	TestOrders   int     `mapstructure:"test-orders"`
	Rate         float64 `mapstructure:"rate"`
	Auto         bool    `mapstructure:"auto"`
	Count        int     `mapstructure:"count"`
	FillRate     float64 `mapstructure:"fill-rate"`

	Protocol string `mapstructure:"protocol"`

	BeginString  string `mapstructure:"begin-string"`
	SenderCompID string `mapstructure:"sender-comp-id"`
	TargetCompID string `mapstructure:"target-comp-id"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat-interval"`
	ConnectTimeout    time.Duration `mapstructure:"connect-timeout"`

	AdminAddr  string `mapstructure:"admin-addr"`
	PersistDir string `mapstructure:"persist-dir"`
	LogLevel   string `mapstructure:"log-level"`
}

// bindFlags registers spec.md §6's CLI surface on fs and binds every flag
// into v, so flag > env > file > default resolves through v.Get* calls.
func bindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String("host", "127.0.0.1", "counterparty host to dial")
	fs.Int("port", 9000, "counterparty port to dial")
	fs.String("session", "default", "session id to drive")
	fs.Int("num-orders", 0, "total orders to send when --auto is set (0 = warmup-orders + test-orders)")
	fs.Bool("latency", false, "run the engine's loop in active (1ms) poll mode instead of idle (10ms)")
	fs.Int("warmup-orders", 0, "orders sent before the measured run starts")
	fs.Int("test-orders", 0, "orders sent as the measured run")
	fs.Float64("rate", 0, "orders per second; 0 sends as fast as the ring buffer accepts")
	fs.Bool("auto", false, "start sending orders automatically once logged on, without waiting for a manual trigger")
	fs.Int("count", 1, "number of times to repeat the warmup+test run")
	fs.Float64("fill-rate", 1.0, "expected fraction of sent orders to be acknowledged, used only to annotate the run summary")
	fs.String("config", "", "path to a YAML/JSON/TOML config file")

	fs.String("protocol", "OUCHv50", "session protocol: FIX, OUCHv42, OUCHv50, Pillar, ILink3, Optiq")
	fs.String("begin-string", "FIX.4.4", "FIX BeginString (tag 8)")
	fs.String("sender-comp-id", "CLIENT", "FIX SenderCompID (tag 49)")
	fs.String("target-comp-id", "EXCHANGE", "FIX TargetCompID (tag 56)")
	fs.String("username", "trader1", "OUCH/Pillar/SBE logon username")
	fs.String("password", "", "OUCH/Pillar/SBE logon password")
	fs.Duration("heartbeat-interval", 30*time.Second, "session heartbeat interval")
	fs.Duration("connect-timeout", 10*time.Second, "time allowed for the session to reach LOGGED_ON before exit code 1")

	fs.String("admin-addr", ":8080", "address the admin HTTP/WebSocket surface listens on")
	fs.String("persist-dir", "./data", "directory persisted frame logs are written under")
	fs.String("log-level", "info", "log level: debug, info, warning, error")

	_ = v.BindPFlags(fs)
}

func loadConfig(v *viper.Viper) (*config, error) {
	v.SetEnvPrefix("omnibridge")
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
