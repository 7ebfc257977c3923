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

package query

// Result is the body of an InfluxDB /query response.
type Result struct {
	Results []StatementResult `json:"results"`
}

// StatementResult holds the series answering one statement.
type StatementResult struct {
	Error       string   `json:"error,omitempty"`
	Series      []Series `json:"series"`
	StatementID int      `json:"statement_id"`
}

// Series is a named table of rows sharing the same tag set.
type Series struct {
	Tags    map[string]string `json:"tags,omitempty"`
	Name    string            `json:"name"`
	Columns []string          `json:"columns"`
	Values  [][]interface{}   `json:"values"`
}

// NewSeries returns a Series with no rows.
func NewSeries(name string, columns ...string) Series {
	return Series{Name: name, Columns: columns, Values: [][]interface{}{}}
}

// Append adds a row. The number of values must match the columns.
func (s *Series) Append(values ...interface{}) {
	s.Values = append(s.Values, values)
}
