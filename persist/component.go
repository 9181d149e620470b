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

package persist

import (
	"io"
	"os"
	"path/filepath"
)

// Component wraps a Log as a lifecycle.Component, opening the backing
// file on Init and closing it on Stop. Grounded on
// config/components/nutsdb's pattern of wrapping a storage engine's
// open/close pair behind the Init/Stop hooks.
type Component struct {
	name string
	dir  string
	nowMs func() int64

	log *Log
}

// NewComponent builds a persist Component that appends every stream's
// frames into a single file under dir/name.log.
func NewComponent(name, dir string, nowMs func() int64) *Component {
	return &Component{name: name, dir: dir, nowMs: nowMs}
}

func (c *Component) Name() string { return c.name }

func (c *Component) Init() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(c.dir, c.name+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	c.log = NewLog(f, f, c.nowMs)
	c.log.SetReopen(func() (io.ReadCloser, error) {
		return os.Open(path)
	})
	return nil
}

func (c *Component) StartActive() error  { return nil }
func (c *Component) StartStandby() error { return nil }
func (c *Component) BecomeActive() error { return nil }
func (c *Component) BecomeStandby() error { return nil }

func (c *Component) Stop() error {
	if c.log == nil {
		return nil
	}
	return c.log.Close()
}

// Log returns the underlying Log for use as a session.PersistSink, once
// Init has run.
func (c *Component) Log() *Log { return c.log }
