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

// Package timestamp carries the clock a query is measured with.
package timestamp

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the subset of package time a component reads the time through.
type Clock interface {
	clock.Clock
}

// MockClock is a Clock that only moves when told to.
type MockClock interface {
	Clock
	Add(d time.Duration)
	Set(t time.Time)
}

// NewClock returns the wall clock.
func NewClock() Clock {
	return clock.New()
}

// NewMockClock returns a MockClock starting at the Unix epoch.
func NewMockClock() MockClock {
	return clock.NewMock()
}

type clockKey struct{}

// SetClock returns a child of ctx carrying c.
func SetClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, c)
}

// GetClock returns the Clock of ctx. Without one, the wall clock is returned
// along with a child context carrying it.
func GetClock(ctx context.Context) (Clock, context.Context) {
	if c, ok := ctx.Value(clockKey{}).(Clock); ok {
		return c, ctx
	}
	c := NewClock()
	return c, SetClock(ctx, c)
}
