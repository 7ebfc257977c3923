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

package query_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/pkg/meter"
	"github.com/tiempodb/tiempodb/pkg/meter/prom"
	"github.com/tiempodb/tiempodb/pkg/timestamp"
	"github.com/tiempodb/tiempodb/tiempod/query"
)

var _ = Describe("Engine", func() {
	var (
		ctrl   *gomock.Controller
		exec   *query.MockExecutor
		reg    *prometheus.Registry
		clk    timestamp.MockClock
		engine *query.Engine
		ctx    context.Context
	)

	newEngine := func(opts ...query.Option) *query.Engine {
		opts = append([]query.Option{
			query.WithClock(clk),
			query.WithMeterProvider(prom.NewProvider(meter.NewHierarchicalScope("tiempo", "_").SubScope("query"), reg)),
		}, opts...)
		e, err := query.NewEngine(exec, opts...)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		exec = query.NewMockExecutor(ctrl)
		reg = prometheus.NewRegistry()
		clk = timestamp.NewMockClock()
		ctx = context.Background()
		engine = newEngine()
	})

	AfterEach(func() {
		engine.Close()
	})

	It("requires an executor", func() {
		_, err := query.NewEngine(nil)
		Expect(err).To(MatchError(ContainSubstring("requires an executor")))
	})

	DescribeTable("dispatches each statement kind",
		func(ql string, expect func(series []query.Series)) {
			series := []query.Series{query.NewSeries("cpu", "name")}
			expect(series)
			result, err := engine.Run(ctx, ql)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Results).To(HaveLen(1))
			Expect(result.Results[0].StatementID).To(BeZero())
			Expect(result.Results[0].Series).To(Equal(series))
		},
		Entry("select", "SELECT mean(usage) FROM cpu", func(s []query.Series) {
			exec.EXPECT().Select(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, q *influxql.SelectQuery) ([]query.Series, error) {
					Expect(q.From).To(Equal("cpu"))
					Expect(q.Fields).To(Equal([]influxql.FieldProjection{{FieldName: "usage", SelectionType: influxql.Mean}}))
					return s, nil
				})
		}),
		Entry("tag keys", "SHOW TAG KEYS FROM cpu", func(s []query.Series) {
			exec.EXPECT().TagKeys(gomock.Any(), &influxql.ShowTagKeysQuery{From: "cpu", WhereConstraints: []influxql.Condition{}}).Return(s, nil)
		}),
		Entry("tag values", "SHOW TAG VALUES FROM cpu WITH KEY = host", func(s []query.Series) {
			exec.EXPECT().TagValues(gomock.Any(), &influxql.ShowTagValuesQuery{
				From: "cpu", Key: "host", WhereConstraints: []influxql.Condition{},
			}).Return(s, nil)
		}),
		Entry("field keys", "SHOW FIELD KEYS FROM cpu", func(s []query.Series) {
			exec.EXPECT().FieldKeys(gomock.Any(), &influxql.ShowFieldKeysQuery{From: "cpu"}).Return(s, nil)
		}),
		Entry("measurements", "SHOW MEASUREMENTS LIMIT 5", func(s []query.Series) {
			exec.EXPECT().Measurements(gomock.Any(), &influxql.ShowMeasurementsQuery{
				WhereConstraints: []influxql.Condition{}, Limit: 5,
			}).Return(s, nil)
		}),
	)

	It("answers an empty series list instead of null", func() {
		exec.EXPECT().FieldKeys(gomock.Any(), gomock.Any()).Return(nil, nil)
		result, err := engine.Run(ctx, "SHOW FIELD KEYS FROM cpu")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Results[0].Series).NotTo(BeNil())
		Expect(result.Results[0].Series).To(BeEmpty())
	})

	It("returns parse errors without calling the executor", func() {
		_, err := engine.Run(ctx, "SELECT FROM")
		var pe *influxql.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Kind).To(Equal(influxql.ErrorKindSyntax))

		_, err = engine.Run(ctx, "SELECT v FROM m LIMIT 99999999999")
		Expect(err).To(MatchError(influxql.ErrNumberTooBig))

		Expect(testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP tiempo_query_parse_errors_total tiempo_query_parse_errors_total
# TYPE tiempo_query_parse_errors_total counter
tiempo_query_parse_errors_total{error_kind="overflow"} 1
tiempo_query_parse_errors_total{error_kind="syntax"} 1
`), "tiempo_query_parse_errors_total")).To(Succeed())
	})

	It("wraps executor failures", func() {
		boom := errors.New("storage unavailable")
		exec.EXPECT().Select(gomock.Any(), gomock.Any()).Return(nil, boom)
		_, err := engine.Run(ctx, "SELECT v FROM m")
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("failed to execute select statement")))
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP tiempo_query_query_failures_total tiempo_query_query_failures_total
# TYPE tiempo_query_query_failures_total counter
tiempo_query_query_failures_total{kind="select"} 1
`), "tiempo_query_query_failures_total")).To(Succeed())
	})

	It("shares cached statements between runs", func() {
		var seen []*influxql.SelectQuery
		exec.EXPECT().Select(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
			func(_ context.Context, q *influxql.SelectQuery) ([]query.Series, error) {
				seen = append(seen, q)
				return nil, nil
			})
		for i := 0; i < 2; i++ {
			_, err := engine.Run(ctx, "SELECT v FROM m")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(seen[0]).To(BeIdenticalTo(seen[1]))
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP tiempo_query_statement_cache_hits_total tiempo_query_statement_cache_hits_total
# TYPE tiempo_query_statement_cache_hits_total counter
tiempo_query_statement_cache_hits_total 1
# HELP tiempo_query_statement_cache_misses_total tiempo_query_statement_cache_misses_total
# TYPE tiempo_query_statement_cache_misses_total counter
tiempo_query_statement_cache_misses_total 1
# HELP tiempo_query_queries_total tiempo_query_queries_total
# TYPE tiempo_query_queries_total counter
tiempo_query_queries_total{kind="select"} 2
`), "tiempo_query_statement_cache_hits_total", "tiempo_query_statement_cache_misses_total",
			"tiempo_query_queries_total")).To(Succeed())
	})

	It("parses every run when the cache is disabled", func() {
		reg = prometheus.NewRegistry()
		uncached := newEngine(query.WithCacheSize(0))
		defer uncached.Close()
		var seen []*influxql.SelectQuery
		exec.EXPECT().Select(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
			func(_ context.Context, q *influxql.SelectQuery) ([]query.Series, error) {
				seen = append(seen, q)
				return nil, nil
			})
		for i := 0; i < 2; i++ {
			_, err := uncached.Run(ctx, "SELECT v FROM m")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(seen[0]).NotTo(BeIdenticalTo(seen[1]))
		Expect(seen[0]).To(Equal(seen[1]))
	})

	It("measures latency with its clock and hands the clock to the executor", func() {
		exec.EXPECT().Select(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ *influxql.SelectQuery) ([]query.Series, error) {
				c, _ := timestamp.GetClock(ctx)
				Expect(c).To(BeIdenticalTo(clk))
				clk.Add(250 * time.Millisecond)
				return nil, nil
			})
		_, err := engine.Run(ctx, "SELECT v FROM m")
		Expect(err).NotTo(HaveOccurred())

		families, err := reg.Gather()
		Expect(err).NotTo(HaveOccurred())
		var sum float64
		for _, mf := range families {
			if mf.GetName() == "tiempo_query_query_latency_seconds" {
				sum = mf.GetMetric()[0].GetHistogram().GetSampleSum()
			}
		}
		Expect(sum).To(BeNumerically("~", 0.25, 1e-9))
	})

	It("honours a canceled context", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := engine.Run(canceled, "SELECT v FROM m")
		Expect(err).To(MatchError(context.Canceled))
	})

	It("waits for running queries on close and rejects new ones", func() {
		release := make(chan struct{})
		started := make(chan struct{})
		exec.EXPECT().Select(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, *influxql.SelectQuery) ([]query.Series, error) {
				close(started)
				<-release
				return nil, nil
			})
		runDone := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := engine.Run(ctx, "SELECT v FROM m")
			runDone <- err
		}()
		Eventually(started).Should(BeClosed())

		closed := make(chan struct{})
		go func() {
			engine.Close()
			close(closed)
		}()
		Consistently(closed, 100*time.Millisecond).ShouldNot(BeClosed())
		close(release)
		Eventually(closed).Should(BeClosed())
		Expect(<-runDone).NotTo(HaveOccurred())

		_, err := engine.Run(ctx, "SELECT v FROM m")
		Expect(err).To(MatchError(query.ErrEngineClosed))
	})

	Context("as a lifecycle unit", func() {
		It("sizes the cache from its flag", func() {
			Expect(engine.FlagSet().Parse([]string{"--query-cache-size", "0"})).To(Succeed())
			Expect(engine.Validate()).To(Succeed())
			var seen []*influxql.ShowFieldKeysQuery
			exec.EXPECT().FieldKeys(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
				func(_ context.Context, q *influxql.ShowFieldKeysQuery) ([]query.Series, error) {
					seen = append(seen, q)
					return nil, nil
				})
			for i := 0; i < 2; i++ {
				_, err := engine.Run(ctx, "SHOW FIELD KEYS FROM cpu")
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(seen[0]).NotTo(BeIdenticalTo(seen[1]))
		})

		It("rejects a negative cache size", func() {
			Expect(engine.FlagSet().Parse([]string{"--query-cache-size", "-1"})).To(Succeed())
			Expect(engine.Validate()).To(MatchError(ContainSubstring("negative")))
		})

		It("stops serving once gracefully stopped", func() {
			stopped := engine.Serve()
			Consistently(stopped, 50*time.Millisecond).ShouldNot(BeClosed())
			engine.GracefulStop()
			Eventually(stopped).Should(BeClosed())
		})
	})
})
