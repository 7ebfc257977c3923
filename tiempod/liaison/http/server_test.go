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

package http_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gleak"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/mock/gomock"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/pkg/meter"
	"github.com/tiempodb/tiempodb/pkg/meter/prom"
	"github.com/tiempodb/tiempodb/pkg/run"
	liaisonhttp "github.com/tiempodb/tiempodb/tiempod/liaison/http"
	"github.com/tiempodb/tiempodb/tiempod/query"
)

type service interface {
	run.Config
	run.PreRunner
	run.Service
	liaisonhttp.Server
}

func newService(engine *query.Engine, reg *prometheus.Registry, args ...string) service {
	svc := liaisonhttp.NewServer(engine, reg).(service)
	Expect(svc.FlagSet().Parse(args)).To(Succeed())
	Expect(svc.Validate()).To(Succeed())
	Expect(svc.PreRun(context.Background())).To(Succeed())
	return svc
}

var _ = Describe("Server", func() {
	var (
		svc    service
		ctrl   *gomock.Controller
		exec   *query.MockExecutor
		engine *query.Engine
		ts     *httptest.Server
		client *resty.Client
		reg    *prometheus.Registry
	)

	start := func(args ...string) {
		svc = newService(engine, reg, args...)
		ts = httptest.NewServer(svc.Handler())
		client = resty.New().SetBaseURL(ts.URL)
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		exec = query.NewMockExecutor(ctrl)
		reg = prometheus.NewRegistry()
		var err error
		engine, err = query.NewEngine(exec,
			query.WithMeterProvider(prom.NewProvider(meter.NewHierarchicalScope("tiempo", "_").SubScope("query"), reg)))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if ts != nil {
			ts.Close()
			ts = nil
		}
		engine.Close()
	})

	Context("with default settings", func() {
		BeforeEach(func() {
			start()
		})

		It("answers ping", func() {
			resp, err := client.R().Get("/ping")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNoContent))
			_, err = uuid.Parse(resp.Header().Get(liaisonhttp.HeaderRequestID))
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs a query from the url", func() {
			series := query.NewSeries("cpu", "tagKey")
			series.Append("host")
			exec.EXPECT().TagKeys(gomock.Any(), gomock.Any()).Return([]query.Series{series}, nil)
			resp, err := client.R().SetQueryParam("q", "SHOW TAG KEYS FROM cpu").Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(resp.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(resp.Body()).To(MatchJSON(`{"results":[{"statement_id":0,"series":[
				{"name":"cpu","columns":["tagKey"],"values":[["host"]]}]}]}`))
		})

		It("runs a query from a form body", func() {
			exec.EXPECT().Select(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, q *influxql.SelectQuery) ([]query.Series, error) {
					Expect(q.WhereConstraints).To(HaveLen(2))
					return nil, nil
				})
			resp, err := client.R().
				SetFormData(map[string]string{"q": "SELECT v FROM m WHERE a = 1 AND time > now() - 1h"}).
				Post("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(resp.Body()).To(MatchJSON(`{"results":[{"statement_id":0,"series":[]}]}`))
		})

		It("rejects a missing query", func() {
			resp, err := client.R().Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
			Expect(resp.Body()).To(MatchJSON(`{"error":"missing required parameter \"q\""}`))
		})

		It("answers 400 for a parse failure", func() {
			resp, err := client.R().SetQueryParam("q", "SHOW MEASUREMENTS").Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))
			Expect(string(resp.Body())).To(ContainSubstring("syntax error"))
		})

		It("answers 500 when the executor fails", func() {
			exec.EXPECT().FieldKeys(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk on fire"))
			resp, err := client.R().SetQueryParam("q", "SHOW FIELD KEYS FROM cpu").Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusInternalServerError))
			Expect(string(resp.Body())).To(ContainSubstring("disk on fire"))
		})

		It("answers 503 once the engine is closed", func() {
			engine.Close()
			resp, err := client.R().SetQueryParam("q", "SHOW FIELD KEYS FROM cpu").Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusServiceUnavailable))
		})

		It("exposes engine metrics", func() {
			exec.EXPECT().FieldKeys(gomock.Any(), gomock.Any()).Return(nil, nil)
			_, err := client.R().SetQueryParam("q", "SHOW FIELD KEYS FROM cpu").Get("/query")
			Expect(err).NotTo(HaveOccurred())
			resp, err := client.R().Get("/metrics")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(string(resp.Body())).To(ContainSubstring(`tiempo_query_queries_total{kind="field_keys"} 1`))
		})

		It("answers 499 when the client is gone", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(http.MethodGet, "/query?q=SHOW+FIELD+KEYS+FROM+cpu", nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			svc.Handler().ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(liaisonhttp.StatusClientClosedRequest))
		})

		It("compresses large answers for gzip clients", func() {
			series := query.NewSeries("measurements", "name")
			for i := 0; i < 200; i++ {
				series.Append(fmt.Sprintf("measurement-%03d", i))
			}
			exec.EXPECT().Measurements(gomock.Any(), gomock.Any()).Return([]query.Series{series}, nil)
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/query?q=SHOW+MEASUREMENTS+LIMIT+200", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Accept-Encoding", "gzip")
			resp, err := ts.Client().Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Encoding")).To(Equal("gzip"))
			zr, err := gzip.NewReader(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			body, err := io.ReadAll(zr)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`["measurement-199"]`))
		})

		It("leaves small answers uncompressed", func() {
			exec.EXPECT().FieldKeys(gomock.Any(), gomock.Any()).Return(nil, nil)
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/query?q=SHOW+FIELD+KEYS+FROM+cpu", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Accept-Encoding", "gzip")
			resp, err := ts.Client().Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("Content-Encoding")).To(BeEmpty())
		})

		It("does not route other methods", func() {
			resp, err := client.R().Delete("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Context("with limits", func() {
		BeforeEach(func() {
			start("--http-max-query-size", "32B", "--http-query-timeout", "50ms")
		})

		It("answers 413 for a long query", func() {
			resp, err := client.R().SetQueryParam("q", "SELECT v FROM m WHERE host = "+strings.Repeat("a", 32)).Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusRequestEntityTooLarge))
		})

		It("answers 413 for a large body", func() {
			resp, err := client.R().SetFormData(map[string]string{"q": strings.Repeat("x", 4096)}).Post("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusRequestEntityTooLarge))
		})

		It("answers 504 when the query times out", func() {
			exec.EXPECT().Select(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, _ *influxql.SelectQuery) ([]query.Series, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				})
			resp, err := client.R().SetQueryParam("q", "SELECT v FROM m").Get("/query")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusGatewayTimeout))
		})
	})

	DescribeTable("validates its flags",
		func(args []string, want string) {
			svc := liaisonhttp.NewServer(engine, reg).(service)
			Expect(svc.FlagSet().Parse(args)).To(Succeed())
			Expect(svc.Validate()).To(MatchError(ContainSubstring(want)))
		},
		Entry("no address", []string{"--http-host", "", "--http-port", "0"}, "no address"),
		Entry("empty query size", []string{"--http-max-query-size", "0"}, "max query size"),
	)

	It("stops when the address is taken", func() {
		taken := newService(engine, reg, "--http-host", "127.0.0.1", "--http-port", "0")
		taken.Serve()
		defer taken.GracefulStop()
		port := fmt.Sprint(*taken.GetPort())
		svc := newService(engine, prometheus.NewRegistry(), "--http-host", "127.0.0.1", "--http-port", port)
		Eventually(svc.Serve()).Should(BeClosed())
	})

	It("serves and stops gracefully", func() {
		goods := gleak.Goroutines()
		svc := newService(engine, reg, "--http-host", "127.0.0.1", "--http-port", "0")
		stopped := svc.Serve()
		Consistently(stopped, 100*time.Millisecond).ShouldNot(BeClosed())
		port := *svc.GetPort()
		Expect(port).NotTo(BeZero())
		resp, err := resty.New().SetCloseConnection(true).R().Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusNoContent))
		svc.GracefulStop()
		Eventually(stopped).Should(BeClosed())
		Eventually(gleak.Goroutines).ShouldNot(gleak.HaveLeaked(goods))
	})
})
