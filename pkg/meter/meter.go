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

// Package meter abstracts the metrics of the query path from their backend.
package meter

type (
	// Buckets is a slice of bucket boundaries.
	Buckets []float64

	// LabelPairs is a map of label names to label values, which is used to identify a metric.
	LabelPairs map[string]string
)

// DefBuckets is the default buckets for histograms.
var DefBuckets = Buckets{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// LatencyBuckets suit parse and catalog lookups which finish in microseconds.
var LatencyBuckets = Buckets{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1}

// Merge merges the given label pairs with the current label pairs.
func (p LabelPairs) Merge(other LabelPairs) LabelPairs {
	result := make(LabelPairs, len(p)+len(other))
	for k, v := range p {
		result[k] = v
	}
	for k, v := range other {
		result[k] = v
	}
	return result
}

// Provider creates metrics under a Scope.
type Provider interface {
	Counter(name string, labelNames ...string) Counter
	Gauge(name string, labelNames ...string) Gauge
	Histogram(name string, buckets Buckets, labelNames ...string) Histogram
}

// Scope is a namespace wrapper for metrics.
type Scope interface {
	ConstLabels(labels LabelPairs) Scope
	SubScope(name string) Scope
	GetNamespace() string
	GetLabels() LabelPairs
}

// Counter is a metric that only ever goes up.
type Counter interface {
	Inc(delta float64, labelValues ...string)
}

// Gauge is a metric that can arbitrarily go up and down.
type Gauge interface {
	Set(value float64, labelValues ...string)
	Add(delta float64, labelValues ...string)
}

// Histogram samples observations into buckets.
type Histogram interface {
	Observe(value float64, labelValues ...string)
}

// NoopProvider returns a Provider whose metrics discard every sample.
func NoopProvider() Provider {
	return noop{}
}

type noop struct{}

func (noop) Counter(string, ...string) Counter              { return noop{} }
func (noop) Gauge(string, ...string) Gauge                  { return noop{} }
func (noop) Histogram(string, Buckets, ...string) Histogram { return noop{} }
func (noop) Inc(float64, ...string)                         {}
func (noop) Set(float64, ...string)                         {}
func (noop) Add(float64, ...string)                         {}
func (noop) Observe(float64, ...string)                     {}
