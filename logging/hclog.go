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

package logging

import (
	"github.com/hashicorp/go-hclog"

	loglvl "github.com/nabbar/omnibridge/logger/level"
)

// NewHCLog adapts l to hclog.Logger for third-party components (gRPC,
// consul, vault SDKs) that only accept hclog. Messages are routed through
// l's own sink via Writer rather than reimplementing hclog's interface by
// hand.
func NewHCLog(name string, l *Logger) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  toHCLevel(l.GetLevel()),
		Output: l.Writer(),
	})
}

func toHCLevel(lvl loglvl.Level) hclog.Level {
	switch lvl {
	case loglvl.PanicLevel, loglvl.FatalLevel, loglvl.ErrorLevel:
		return hclog.Error
	case loglvl.WarnLevel:
		return hclog.Warn
	case loglvl.InfoLevel:
		return hclog.Info
	case loglvl.DebugLevel:
		return hclog.Debug
	default:
		return hclog.Off
	}
}
