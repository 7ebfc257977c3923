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

import (
	"context"

	"github.com/tiempodb/tiempodb/pkg/influxql"
)

// Executor answers one kind of statement each. Statements may be shared
// between concurrent calls and must not be modified.
//
//go:generate mockgen -destination=./executor_mock.go -package=query . Executor
type Executor interface {
	Select(ctx context.Context, q *influxql.SelectQuery) ([]Series, error)
	TagKeys(ctx context.Context, q *influxql.ShowTagKeysQuery) ([]Series, error)
	TagValues(ctx context.Context, q *influxql.ShowTagValuesQuery) ([]Series, error)
	FieldKeys(ctx context.Context, q *influxql.ShowFieldKeysQuery) ([]Series, error)
	Measurements(ctx context.Context, q *influxql.ShowMeasurementsQuery) ([]Series, error)
}

// dispatch routes q to the Executor method of its kind.
func dispatch(ctx context.Context, exec Executor, q influxql.Query) ([]Series, error) {
	switch stmt := q.(type) {
	case *influxql.SelectQuery:
		return exec.Select(ctx, stmt)
	case *influxql.ShowTagKeysQuery:
		return exec.TagKeys(ctx, stmt)
	case *influxql.ShowTagValuesQuery:
		return exec.TagValues(ctx, stmt)
	case *influxql.ShowFieldKeysQuery:
		return exec.FieldKeys(ctx, stmt)
	case *influxql.ShowMeasurementsQuery:
		return exec.Measurements(ctx, stmt)
	default:
		return nil, errUnknownStatement
	}
}
