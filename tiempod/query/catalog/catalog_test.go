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

package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/tiempod/query"
	"github.com/tiempodb/tiempodb/tiempod/query/catalog"
)

func parse[Q influxql.Query](ql string) Q {
	q, err := influxql.Parse(ql)
	Expect(err).NotTo(HaveOccurred())
	return q.(Q)
}

func rows(values ...[]interface{}) [][]interface{} {
	return values
}

var _ = Describe("Catalog", func() {
	var (
		c   *catalog.Catalog
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		s, err := catalog.DecodeFile(filepath.Join("testdata", "schema.yaml"))
		Expect(err).NotTo(HaveOccurred())
		c, err = catalog.New(s)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("SHOW MEASUREMENTS", func() {
		It("lists names in order", func() {
			series, err := c.Measurements(ctx, parse[*influxql.ShowMeasurementsQuery]("SHOW MEASUREMENTS LIMIT 10"))
			Expect(err).NotTo(HaveOccurred())
			Expect(series).To(Equal([]query.Series{{
				Name:    "measurements",
				Columns: []string{"name"},
				Values:  rows([]interface{}{"alerts"}, []interface{}{"cpu"}, []interface{}{"disk"}),
			}}))
		})

		It("applies the limit", func() {
			series, err := c.Measurements(ctx, parse[*influxql.ShowMeasurementsQuery]("SHOW MEASUREMENTS LIMIT 2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(series[0].Values).To(HaveLen(2))
		})

		It("answers no series for a zero limit", func() {
			series, err := c.Measurements(ctx, parse[*influxql.ShowMeasurementsQuery]("SHOW MEASUREMENTS LIMIT 0"))
			Expect(err).NotTo(HaveOccurred())
			Expect(series).To(BeEmpty())
		})
	})

	It("lists sorted tag keys", func() {
		series, err := c.TagKeys(ctx, parse[*influxql.ShowTagKeysQuery]("SHOW TAG KEYS FROM cpu"))
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(1))
		Expect(series[0].Name).To(Equal("cpu"))
		Expect(series[0].Columns).To(Equal([]string{"tagKey"}))
		Expect(series[0].Values).To(Equal(rows([]interface{}{"host"}, []interface{}{"region"})))
	})

	It("lists the values of a tag key", func() {
		series, err := c.TagValues(ctx, parse[*influxql.ShowTagValuesQuery](`SHOW TAG VALUES FROM "cpu" WITH KEY = host`))
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(1))
		Expect(series[0].Columns).To(Equal([]string{"key", "value"}))
		Expect(series[0].Values).To(Equal(rows(
			[]interface{}{"host", "server01"},
			[]interface{}{"host", "server02"},
		)))
	})

	It("answers nothing for an unknown tag key", func() {
		series, err := c.TagValues(ctx, parse[*influxql.ShowTagValuesQuery]("SHOW TAG VALUES FROM cpu WITH KEY = zone"))
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(BeEmpty())
	})

	It("lists field keys with their types", func() {
		series, err := c.FieldKeys(ctx, parse[*influxql.ShowFieldKeysQuery]("SHOW FIELD KEYS FROM disk"))
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(1))
		Expect(series[0].Columns).To(Equal([]string{"fieldKey", "fieldType"}))
		Expect(series[0].Values).To(Equal(rows(
			[]interface{}{"mounted", "boolean"},
			[]interface{}{"used", "integer"},
		)))
	})

	It("answers the column layout of a SELECT", func() {
		series, err := c.Select(ctx, parse[*influxql.SelectQuery](`SELECT mean("usage_user"), cores FROM cpu GROUP BY time(1m)`))
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(Equal([]query.Series{{
			Name:    "cpu",
			Columns: []string{"time", "mean", "cores"},
			Values:  [][]interface{}{},
		}}))
	})

	It("needs quotes around a field key with an underscore", func() {
		_, err := influxql.Parse("SELECT usage_user FROM cpu")
		var pe *influxql.ParseError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Kind).To(Equal(influxql.ErrorKindLexical))

		series, err := c.Select(ctx, parse[*influxql.SelectQuery](`SELECT "usage_user" FROM cpu`))
		Expect(err).NotTo(HaveOccurred())
		Expect(series[0].Columns).To(Equal([]string{"time", "usage_user"}))
	})

	DescribeTable("answers no series for an unknown measurement",
		func(run func() ([]query.Series, error)) {
			series, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(series).NotTo(BeNil())
			Expect(series).To(BeEmpty())
		},
		Entry("tag keys", func() ([]query.Series, error) {
			return c.TagKeys(ctx, parse[*influxql.ShowTagKeysQuery]("SHOW TAG KEYS FROM mem"))
		}),
		Entry("tag values", func() ([]query.Series, error) {
			return c.TagValues(ctx, parse[*influxql.ShowTagValuesQuery]("SHOW TAG VALUES FROM mem WITH KEY = host"))
		}),
		Entry("field keys", func() ([]query.Series, error) {
			return c.FieldKeys(ctx, parse[*influxql.ShowFieldKeysQuery]("SHOW FIELD KEYS FROM mem"))
		}),
		Entry("select", func() ([]query.Series, error) {
			return c.Select(ctx, parse[*influxql.SelectQuery]("SELECT v FROM mem"))
		}),
	)

	It("stops on a canceled context", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.TagKeys(canceled, parse[*influxql.ShowTagKeysQuery]("SHOW TAG KEYS FROM cpu"))
		Expect(err).To(MatchError(context.Canceled))
	})

	It("serves statements through the query engine", func() {
		engine, err := query.NewEngine(c)
		Expect(err).NotTo(HaveOccurred())
		defer engine.Close()
		result, err := engine.Run(ctx, "SHOW TAG KEYS FROM disk")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Results[0].Series[0].Values).To(Equal(rows([]interface{}{"device"})))
	})
})

var _ = Describe("Schema", func() {
	It("rejects unknown keys", func() {
		_, err := catalog.Decode(strings.NewReader("measurements:\n  - name: cpu\n    field: []\n"))
		Expect(err).To(MatchError(ContainSubstring("field field not found")))
	})

	It("accepts an empty document", func() {
		s, err := catalog.Decode(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Measurements).To(BeEmpty())
	})

	It("reports every invalid entry", func() {
		_, err := catalog.Decode(strings.NewReader(`
measurements:
  - name: cpu
    tags:
      - key: host
    fields:
      - key: host
        type: float
      - key: load
        type: decimal
  - name: cpu
  - tags: []
`))
		Expect(err).To(HaveOccurred())
		msg := err.Error()
		Expect(msg).To(ContainSubstring(`measurement "cpu": duplicated key "host"`))
		Expect(msg).To(ContainSubstring(`field "load" has unknown type "decimal"`))
		Expect(msg).To(ContainSubstring(`measurement "cpu" is defined twice`))
		Expect(msg).To(ContainSubstring("measurement #2 has no name"))
	})
})

var _ = Describe("Service", func() {
	var (
		c  *catalog.Catalog
		fs *run.FlagSet
	)

	BeforeEach(func() {
		c = catalog.NewService()
		fs = c.FlagSet()
	})

	It("starts empty without a file", func() {
		Expect(c.PreRun(context.Background())).To(Succeed())
		series, err := c.Measurements(context.Background(), &influxql.ShowMeasurementsQuery{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(BeEmpty())
	})

	It("loads the configured file", func() {
		Expect(fs.Parse([]string{"--catalog-file", filepath.Join("testdata", "schema.yaml")})).To(Succeed())
		Expect(c.Validate()).To(Succeed())
		Expect(c.PreRun(context.Background())).To(Succeed())
		series, err := c.Measurements(context.Background(), &influxql.ShowMeasurementsQuery{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(series[0].Values).To(HaveLen(3))
	})

	It("fails to start on a broken file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "schema.yaml")
		Expect(os.WriteFile(path, []byte("measurements: {"), 0o600)).To(Succeed())
		Expect(fs.Parse([]string{"--catalog-file", path})).To(Succeed())
		err := c.PreRun(context.Background())
		Expect(err).To(MatchError(ContainSubstring(path)))
		Expect(err).To(MatchError(ContainSubstring("failed to decode schema")))
	})

	It("stops at once without a file", func() {
		Expect(c.PreRun(context.Background())).To(Succeed())
		stopped := c.Serve()
		Consistently(stopped).ShouldNot(BeClosed())
		c.GracefulStop()
		Eventually(stopped).Should(BeClosed())
	})

	Context("watching the file", func() {
		var path string

		measurementNames := func() []interface{} {
			series, err := c.Measurements(context.Background(), &influxql.ShowMeasurementsQuery{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			var names []interface{}
			for _, s := range series {
				for _, row := range s.Values {
					names = append(names, row[0])
				}
			}
			return names
		}

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "schema.yaml")
			Expect(os.WriteFile(path, []byte("measurements:\n  - name: cpu\n"), 0o600)).To(Succeed())
			Expect(fs.Parse([]string{"--catalog-file", path})).To(Succeed())
			Expect(c.PreRun(context.Background())).To(Succeed())
			c.Serve()
			DeferCleanup(c.GracefulStop)
			Expect(measurementNames()).To(Equal([]interface{}{"cpu"}))
		})

		It("reloads a rewritten file", func() {
			Expect(os.WriteFile(path, []byte("measurements:\n  - name: cpu\n  - name: mem\n"), 0o600)).To(Succeed())
			Eventually(measurementNames, "5s").Should(Equal([]interface{}{"cpu", "mem"}))
		})

		It("keeps the previous catalog when the file breaks", func() {
			Expect(os.WriteFile(path, []byte("measurements: {"), 0o600)).To(Succeed())
			Consistently(measurementNames, "600ms").Should(Equal([]interface{}{"cpu"}))

			Expect(os.WriteFile(path, []byte("measurements:\n  - name: disk\n"), 0o600)).To(Succeed())
			Eventually(measurementNames, "5s").Should(Equal([]interface{}{"disk"}))
		})

		It("follows a file replaced by rename", func() {
			next := path + ".next"
			Expect(os.WriteFile(next, []byte("measurements:\n  - name: net\n"), 0o600)).To(Succeed())
			Expect(os.Rename(next, path)).To(Succeed())
			Eventually(measurementNames, "5s").Should(Equal([]interface{}{"net"}))

			Expect(os.WriteFile(path, []byte("measurements:\n  - name: net\n  - name: swap\n"), 0o600)).To(Succeed())
			Eventually(measurementNames, "5s").Should(Equal([]interface{}{"net", "swap"}))
		})
	})

	It("does not watch when disabled", func() {
		path := filepath.Join(GinkgoT().TempDir(), "schema.yaml")
		Expect(os.WriteFile(path, []byte("measurements:\n  - name: cpu\n"), 0o600)).To(Succeed())
		Expect(fs.Parse([]string{"--catalog-file", path, "--catalog-watch=false"})).To(Succeed())
		Expect(c.PreRun(context.Background())).To(Succeed())
		c.Serve()
		defer c.GracefulStop()
		Expect(os.WriteFile(path, []byte("measurements:\n  - name: mem\n"), 0o600)).To(Succeed())
		Consistently(func() int {
			series, err := c.Measurements(context.Background(), &influxql.ShowMeasurementsQuery{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			return len(series[0].Values)
		}, "600ms").Should(Equal(1))
		series, err := c.TagKeys(context.Background(), &influxql.ShowTagKeysQuery{From: "mem"})
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(BeEmpty())
	})
})
