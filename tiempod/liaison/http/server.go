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

// Package http implements the InfluxDB compatible HTTP query endpoint.
package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/tiempod/query"
)

var (
	_ run.Config    = (*server)(nil)
	_ run.PreRunner = (*server)(nil)
	_ run.Service   = (*server)(nil)

	errNoAddr       = errors.New("http: no address")
	errNoQuerySize  = errors.New("http: max query size must be positive")
	errNoQueryLimit = errors.New("http: query timeout must not be negative")
)

const (
	defaultMaxQuerySize = 64 << 10
	defaultQueryTimeout = run.Duration(30 * time.Second)
	shutdownTimeout     = 10 * time.Second
)

// Server is the http service.
type Server interface {
	run.Unit
	GetPort() *uint32
	Handler() http.Handler
}

// NewServer returns a http service answering queries with engine.
// Metrics of gatherer are exposed on /metrics.
func NewServer(engine *query.Engine, gatherer prometheus.Gatherer) Server {
	return &server{
		engine:       engine,
		gatherer:     gatherer,
		stopCh:       make(chan struct{}),
		maxQuerySize: defaultMaxQuerySize,
		queryTimeout: defaultQueryTimeout,
	}
}

type server struct {
	engine       *query.Engine
	gatherer     prometheus.Gatherer
	l            *logger.Logger
	mux          *chi.Mux
	srv          *http.Server
	stopCh       chan struct{}
	host         string
	listenAddr   string
	maxQuerySize run.Bytes
	queryTimeout run.Duration
	port         uint32
}

func (p *server) FlagSet() *run.FlagSet {
	flagSet := run.NewFlagSet("http")
	flagSet.StringVar(&p.host, "http-host", "localhost", "listen host for http")
	flagSet.Uint32Var(&p.port, "http-port", 8086, "listen port for http")
	flagSet.Var(&p.maxQuerySize, "http-max-query-size", "the largest accepted query text, such as 64KiB")
	flagSet.Var(&p.queryTimeout, "http-query-timeout", "the deadline of one query, 0 disables it")
	return flagSet
}

func (p *server) Validate() error {
	if p.host == "" && p.port == 0 {
		return errNoAddr
	}
	p.listenAddr = net.JoinHostPort(p.host, strconv.FormatUint(uint64(p.port), 10))
	if p.maxQuerySize <= 0 {
		return errNoQuerySize
	}
	if p.queryTimeout < 0 {
		return errNoQueryLimit
	}
	return nil
}

func (p *server) Name() string {
	return "liaison-http"
}

// GetPort returns the listening port. Once Serve returns, a zero http-port
// has been replaced by the port the system picked.
func (p *server) GetPort() *uint32 {
	return &p.port
}

// Handler returns the routes of the server. It is only valid after PreRun.
func (p *server) Handler() http.Handler {
	return p.mux
}

func (p *server) PreRun(ctx context.Context) error {
	p.l = logger.Fetch(ctx, p.Name())
	p.mux = chi.NewRouter()
	p.mux.Use(middleware.Recoverer, p.requestID)
	p.mux.Get("/ping", ping)
	p.mux.Head("/ping", ping)
	compressed := p.mux.With(gzipped)
	compressed.Get("/query", p.query)
	compressed.Post("/query", p.query)
	p.mux.Handle("/metrics", promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{}))
	p.srv = &http.Server{
		Addr:              p.listenAddr,
		Handler:           p.mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

func (p *server) Serve() run.StopNotify {
	lis, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		p.l.Error().Err(err).Str("listenAddr", p.listenAddr).Msg("failed to listen")
		close(p.stopCh)
		return p.stopCh
	}
	if addr, ok := lis.Addr().(*net.TCPAddr); ok {
		p.port = uint32(addr.Port)
	}
	go func() {
		p.l.Info().Str("listenAddr", lis.Addr().String()).Msg("Start liaison http server")
		if err := p.srv.Serve(lis); err != http.ErrServerClosed {
			p.l.Error().Err(err).Msg("http server stopped unexpectedly")
		}
		close(p.stopCh)
	}()
	return p.stopCh
}

func (p *server) GracefulStop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.srv.Shutdown(ctx); err != nil {
		p.l.Error().Err(err).Msg("failed to shut down the http server")
	}
}

// gzipped compresses responses above gzhttp.DefaultMinSize for clients
// accepting gzip.
func gzipped(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
