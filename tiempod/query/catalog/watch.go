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

package catalog

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const maxRewatchRetries = 10

var errWatcherClosed = errors.New("catalog watcher is closed")

func (c *Catalog) watchFileChanges() {
	defer c.closer.Done()
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.l.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("catalog file event")
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Editors and config maps replace the file, which drops the watch.
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				_ = c.watcher.Remove(c.file)
				if err := c.rewatch(); err != nil {
					c.l.Error().Err(err).Str("file", c.file).Msg("failed to watch the catalog file again")
					continue
				}
			}
			if !c.waitSettle() {
				return
			}
			// A broken file keeps the previous catalog in service.
			if err := c.load(); err != nil {
				c.l.Warn().Err(err).Msg("failed to reload the catalog file")
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.l.Error().Err(err).Msg("error from fsnotify watcher")
		case <-c.closer.CloseNotify():
			return
		}
	}
}

func (c *Catalog) rewatch() error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.settle), maxRewatchRetries)
	return backoff.Retry(func() error {
		if c.closer.Closed() {
			return backoff.Permanent(errWatcherClosed)
		}
		return c.watcher.Add(c.file)
	}, b)
}

// waitSettle lets a writer finish before the file is read. It returns false
// once the catalog is stopping.
func (c *Catalog) waitSettle() bool {
	t := time.NewTimer(c.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.closer.CloseNotify():
		return false
	}
}
