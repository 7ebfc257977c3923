// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package run

import (
	"sync"
)

// Closer tracks running tasks so that closing can wait for them to finish.
type Closer struct {
	done    chan struct{}
	running sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// NewCloser returns an open Closer without running tasks.
func NewCloser() *Closer {
	return &Closer{done: make(chan struct{})}
}

// AddRunning registers a task. It returns false once the Closer is closed,
// in which case the task must not start.
func (c *Closer) AddRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	c.running.Add(1)
	return true
}

// Done marks a task registered by AddRunning as finished.
func (c *Closer) Done() {
	c.running.Done()
}

// CloseNotify is closed when CloseThenWait starts.
func (c *Closer) CloseNotify() <-chan struct{} {
	return c.done
}

// CloseThenWait rejects new tasks and blocks until the running ones are done.
// It can be called more than once.
func (c *Closer) CloseThenWait() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	c.running.Wait()
}

// Closed reports whether CloseThenWait was called.
func (c *Closer) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
