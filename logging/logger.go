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

// Package logging is a trimmed adaptation of the logger package: a
// logrus-backed structured logger with field injection and level
// filtering, stripped of the syslog/file/hook-registry machinery the full
// package carries since every engine component here only ever logs to a
// single configured io.Writer.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	loglvl "github.com/nabbar/omnibridge/logger/level"
)

// Fields carries structured key/value context attached to a log entry.
type Fields map[string]interface{}

// Logger wraps a logrus entry with the level type used across the module.
type Logger struct {
	mu    sync.RWMutex
	base  *logrus.Logger
	entry *logrus.Entry
}

// New builds a Logger writing JSON lines to out at the given level. A nil
// out defaults to os.Stderr, matching the teacher's own default sink.
func New(lvl loglvl.Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	b := logrus.New()
	b.SetOutput(out)
	b.SetFormatter(&logrus.JSONFormatter{})
	b.SetLevel(lvl.Logrus())

	return &Logger{base: b, entry: logrus.NewEntry(b)}
}

// SetLevel changes the minimal level of emitted log messages.
func (l *Logger) SetLevel(lvl loglvl.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetLevel(lvl.Logrus())
}

// GetLevel returns the minimal level of emitted log messages.
func (l *Logger) GetLevel() loglvl.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch l.base.GetLevel() {
	case logrus.PanicLevel:
		return loglvl.PanicLevel
	case logrus.FatalLevel:
		return loglvl.FatalLevel
	case logrus.ErrorLevel:
		return loglvl.ErrorLevel
	case logrus.WarnLevel:
		return loglvl.WarnLevel
	case logrus.InfoLevel:
		return loglvl.InfoLevel
	default:
		return loglvl.DebugLevel
	}
}

// With returns a child Logger with field merged into every subsequent entry.
func (l *Logger) With(field Fields) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithFields(logrus.Fields(field))}
}

// Writer exposes an io.Writer that logs each written line at Info level,
// used to plug hclog or the standard library's log package through this
// logger instead of writing to the raw sink directly.
func (l *Logger) Writer() *io.PipeWriter {
	return l.base.WriterLevel(logrus.InfoLevel)
}

func (l *Logger) Debug(message string, fields Fields)   { l.entry.WithFields(logrus.Fields(fields)).Debug(message) }
func (l *Logger) Info(message string, fields Fields)     { l.entry.WithFields(logrus.Fields(fields)).Info(message) }
func (l *Logger) Warning(message string, fields Fields)  { l.entry.WithFields(logrus.Fields(fields)).Warn(message) }
func (l *Logger) Error(message string, fields Fields)    { l.entry.WithFields(logrus.Fields(fields)).Error(message) }
func (l *Logger) Fatal(message string, fields Fields)    { l.entry.WithFields(logrus.Fields(fields)).Fatal(message) }
