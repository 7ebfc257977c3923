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

// Package query runs InfluxQL statements against an Executor and shapes the
// answers into the InfluxDB result model.
package query

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/meter"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/pkg/timestamp"
)

// DefaultCacheSize is the number of parsed statements kept by default.
const DefaultCacheSize = 1024

var (
	// ErrEngineClosed is returned by Run once Close has been called.
	ErrEngineClosed = errors.New("query engine is closed")

	errUnknownStatement = errors.New("unknown statement")
)

var (
	_ run.Config  = (*Engine)(nil)
	_ run.Service = (*Engine)(nil)
)

// Engine parses query text and dispatches the statement to an Executor.
// It is safe for concurrent use.
type Engine struct {
	exec      Executor
	cache     *lru.Cache
	closer    *run.Closer
	clock     timestamp.Clock
	l         *logger.Logger
	provider  meter.Provider
	metrics   *metrics
	cacheSize int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCacheSize sets how many parsed statements are kept. A size of zero or
// less disables the cache.
func WithCacheSize(size int) Option {
	return func(e *Engine) {
		e.cacheSize = size
	}
}

// WithMeterProvider records engine metrics through p.
func WithMeterProvider(p meter.Provider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithClock replaces the clock measuring query latency.
func WithClock(c timestamp.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger replaces the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.l = l
	}
}

// NewEngine returns an Engine answering statements with exec.
func NewEngine(exec Executor, opts ...Option) (*Engine, error) {
	if exec == nil {
		return nil, errors.New("query engine requires an executor")
	}
	e := &Engine{
		exec:      exec,
		closer:    run.NewCloser(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = timestamp.NewClock()
	}
	if e.l == nil {
		e.l = logger.GetLogger("query")
	}
	if e.provider == nil {
		e.provider = meter.NoopProvider()
	}
	e.metrics = newMetrics(e.provider)
	if err := e.resetCache(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) resetCache() error {
	if e.cacheSize <= 0 {
		e.cache = nil
		return nil
	}
	cache, err := lru.New(e.cacheSize)
	if err != nil {
		return errors.Wrap(err, "failed to create the statement cache")
	}
	e.cache = cache
	return nil
}

// Name implements run.Unit.
func (e *Engine) Name() string {
	return "query"
}

// FlagSet implements run.Config.
func (e *Engine) FlagSet() *run.FlagSet {
	fs := run.NewFlagSet("query")
	fs.IntVar(&e.cacheSize, "query-cache-size", e.cacheSize, "the number of parsed statements kept, 0 disables the cache")
	return fs
}

// Validate implements run.Config. It sizes the statement cache after the flags.
func (e *Engine) Validate() error {
	if e.cacheSize < 0 {
		return errors.Errorf("query cache size %d is negative", e.cacheSize)
	}
	return e.resetCache()
}

// Serve implements run.Service. The engine stops when it is closed.
func (e *Engine) Serve() run.StopNotify {
	return e.closer.CloseNotify()
}

// GracefulStop implements run.Service.
func (e *Engine) GracefulStop() {
	e.Close()
}

// Parse returns the statement of query, from the cache when it was parsed before.
// The returned statement is shared and must not be modified.
func (e *Engine) Parse(query string) (influxql.Query, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(query); ok {
			e.metrics.cacheHits.Inc(1)
			return v.(influxql.Query), nil
		}
		e.metrics.cacheMisses.Inc(1)
	}
	q, err := influxql.Parse(query)
	if err != nil {
		var pe *influxql.ParseError
		if errors.As(err, &pe) {
			e.metrics.parseErrors.Inc(1, pe.Kind.String())
		}
		e.l.Debug().Err(err).Str("ql", query).Msg("failed to parse query")
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(query, q)
	}
	return q, nil
}

// Run parses query and answers it as statement 0 of a Result.
// Parse failures are returned as *influxql.ParseError.
func (e *Engine) Run(ctx context.Context, query string) (*Result, error) {
	if !e.closer.AddRunning() {
		return nil, ErrEngineClosed
	}
	defer e.closer.Done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := e.clock.Now()
	q, err := e.Parse(query)
	if err != nil {
		return nil, err
	}
	kind := q.Kind().String()
	e.metrics.inFlight.Add(1, kind)
	defer e.metrics.inFlight.Add(-1, kind)

	series, err := dispatch(timestamp.SetClock(ctx, e.clock), e.exec, q)
	elapsed := e.clock.Since(start)
	e.metrics.latency.Observe(elapsed.Seconds(), kind)
	if err != nil {
		e.metrics.failures.Inc(1, kind)
		return nil, errors.WithMessagef(err, "failed to execute %s statement", kind)
	}
	e.metrics.queries.Inc(1, kind)
	if series == nil {
		series = []Series{}
	}
	if ev := e.l.Debug(); ev.Enabled() {
		ev.Str("ql", query).Str("type", kind).Int("series", len(series)).
			Dur("duration", elapsed.Round(time.Microsecond)).Msg("query executed")
	}
	return &Result{Results: []StatementResult{{StatementID: 0, Series: series}}}, nil
}

// Close rejects new queries and waits for the running ones.
func (e *Engine) Close() {
	e.closer.CloseThenWait()
}

type metrics struct {
	queries     meter.Counter
	failures    meter.Counter
	parseErrors meter.Counter
	cacheHits   meter.Counter
	cacheMisses meter.Counter
	latency     meter.Histogram
	inFlight    meter.Gauge
}

func newMetrics(p meter.Provider) *metrics {
	return &metrics{
		queries:     p.Counter("queries_total", "kind"),
		failures:    p.Counter("query_failures_total", "kind"),
		parseErrors: p.Counter("parse_errors_total", "error_kind"),
		cacheHits:   p.Counter("statement_cache_hits_total"),
		cacheMisses: p.Counter("statement_cache_misses_total"),
		latency:     p.Histogram("query_latency_seconds", meter.LatencyBuckets, "kind"),
		inFlight:    p.Gauge("queries_in_flight", "kind"),
	}
}
