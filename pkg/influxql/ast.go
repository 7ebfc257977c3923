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

package influxql

import (
	"strconv"
	"time"
)

// QueryKind tags the variant held by a Query.
type QueryKind int

// Possible values are SELECT, SHOW TAG KEYS, SHOW TAG VALUES, SHOW FIELD KEYS, SHOW MEASUREMENTS.
const (
	KindSelect QueryKind = iota
	KindTagKeys
	KindTagValues
	KindFieldKeys
	KindMeasurements
)

func (k QueryKind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindTagKeys:
		return "tag_keys"
	case KindTagValues:
		return "tag_values"
	case KindFieldKeys:
		return "field_keys"
	case KindMeasurements:
		return "measurements"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k QueryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Query is a parsed statement. It is implemented by exactly five types:
// *SelectQuery, *ShowTagKeysQuery, *ShowTagValuesQuery, *ShowFieldKeysQuery
// and *ShowMeasurementsQuery.
type Query interface {
	Kind() QueryKind
	queryNode()
}

// SelectQuery represents a SELECT statement.
type SelectQuery struct {
	Limit            *uint32           `json:"limit"`
	SLimit           *uint32           `json:"slimit"`
	From             string            `json:"from"`
	Fields           []FieldProjection `json:"fields"`
	WhereConstraints []Condition       `json:"where_constraints"`
	GroupBy          GroupBy           `json:"group_by"`
	OrderByTime      OrderDirection    `json:"order_by_time"`
}

// Kind implements Query.
func (*SelectQuery) Kind() QueryKind { return KindSelect }
func (*SelectQuery) queryNode()      {}

// ShowTagKeysQuery represents a SHOW TAG KEYS statement.
type ShowTagKeysQuery struct {
	From             string      `json:"from"`
	WhereConstraints []Condition `json:"where_constraints"`
}

// Kind implements Query.
func (*ShowTagKeysQuery) Kind() QueryKind { return KindTagKeys }
func (*ShowTagKeysQuery) queryNode()      {}

// ShowTagValuesQuery represents a SHOW TAG VALUES statement.
type ShowTagValuesQuery struct {
	From             string      `json:"from"`
	Key              string      `json:"key"`
	WhereConstraints []Condition `json:"where_constraints"`
}

// Kind implements Query.
func (*ShowTagValuesQuery) Kind() QueryKind { return KindTagValues }
func (*ShowTagValuesQuery) queryNode()      {}

// ShowFieldKeysQuery represents a SHOW FIELD KEYS statement.
type ShowFieldKeysQuery struct {
	From string `json:"from"`
}

// Kind implements Query.
func (*ShowFieldKeysQuery) Kind() QueryKind { return KindFieldKeys }
func (*ShowFieldKeysQuery) queryNode()      {}

// ShowMeasurementsQuery represents a SHOW MEASUREMENTS statement. Its LIMIT is mandatory.
type ShowMeasurementsQuery struct {
	WhereConstraints []Condition `json:"where_constraints"`
	Limit            uint32      `json:"limit"`
}

// Kind implements Query.
func (*ShowMeasurementsQuery) Kind() QueryKind { return KindMeasurements }
func (*ShowMeasurementsQuery) queryNode()      {}

// FieldProjection is one selected column, optionally wrapped by an aggregate function.
type FieldProjection struct {
	FieldName     string        `json:"field_name"`
	SelectionType SelectionType `json:"selection_type"`
}

// SelectionType is the function applied to a projected field.
type SelectionType int

// Identity means the field is selected as is.
const (
	Identity SelectionType = iota
	Bottom
	First
	Last
	Max
	Min
	Count
	Distinct
	Integral
	Mean
	Median
	Mod
	Sum
)

var selectionNames = [...]string{
	Identity: "identity",
	Bottom:   "bottom",
	First:    "first",
	Last:     "last",
	Max:      "max",
	Min:      "min",
	Count:    "count",
	Distinct: "distinct",
	Integral: "integral",
	Mean:     "mean",
	Median:   "median",
	Mod:      "mod",
	Sum:      "sum",
}

// aggregateFunctions is the closed set of function names accepted around a field.
var aggregateFunctions = map[string]SelectionType{
	"bottom":   Bottom,
	"first":    First,
	"last":     Last,
	"max":      Max,
	"min":      Min,
	"count":    Count,
	"distinct": Distinct,
	"integral": Integral,
	"mean":     Mean,
	"median":   Median,
	"mod":      Mod,
	"sum":      Sum,
}

func (s SelectionType) String() string {
	if s < 0 || int(s) >= len(selectionNames) {
		return "unknown"
	}
	return selectionNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s SelectionType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Condition is one WHERE predicate. Conditions of a statement are joined by AND.
type Condition struct {
	Source     string         `json:"source"`
	Value      string         `json:"value"`
	Comparison ComparisonType `json:"comparison"`
}

// ComparisonType is the operator of a Condition.
type ComparisonType int

// Like and NotLike are the regular expression operators =~ and !=~.
const (
	Eq ComparisonType = iota
	NotEq
	Gt
	GtEq
	Lt
	LtEq
	Like
	NotLike
)

var comparisonOperators = map[string]ComparisonType{
	"=":   Eq,
	"<>":  NotEq,
	">":   Gt,
	">=":  GtEq,
	"<":   Lt,
	"<=":  LtEq,
	"=~":  Like,
	"!=~": NotLike,
}

func (c ComparisonType) String() string {
	switch c {
	case Eq:
		return "="
	case NotEq:
		return "<>"
	case Gt:
		return ">"
	case GtEq:
		return ">="
	case Lt:
		return "<"
	case LtEq:
		return "<="
	case Like:
		return "=~"
	case NotLike:
		return "!=~"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c ComparisonType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// GroupBy is the GROUP BY clause. The zero value means no grouping.
type GroupBy struct {
	ByTime  *Time   `json:"by_time"`
	ByField *string `json:"by_field"`
	Fill    Fill    `json:"fill"`
}

// Fill is the policy for empty time buckets.
type Fill int

// FillNone is both the default and the value of fill(none).
const (
	FillNone Fill = iota
	FillLinear
	FillNull
	FillPrevious
)

var fillPolicies = map[string]Fill{
	"none":     FillNone,
	"linear":   FillLinear,
	"null":     FillNull,
	"previous": FillPrevious,
}

func (f Fill) String() string {
	switch f {
	case FillNone:
		return "none"
	case FillLinear:
		return "linear"
	case FillNull:
		return "null"
	case FillPrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Fill) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// OrderDirection is the direction of ORDER BY time.
type OrderDirection int

// Asc is the default.
const (
	Asc OrderDirection = iota
	Desc
)

func (o OrderDirection) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

// MarshalText implements encoding.TextMarshaler.
func (o OrderDirection) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// TimeUnit is the suffix of a duration literal.
type TimeUnit int

// Possible values are ns, ms, s, m, h, d.
const (
	Nanoseconds TimeUnit = iota
	Milliseconds
	Seconds
	Minutes
	Hours
	Days
)

var timeUnits = map[string]TimeUnit{
	"ns": Nanoseconds,
	"ms": Milliseconds,
	"s":  Seconds,
	"m":  Minutes,
	"h":  Hours,
	"d":  Days,
}

func (u TimeUnit) String() string {
	switch u {
	case Nanoseconds:
		return "ns"
	case Milliseconds:
		return "ms"
	case Seconds:
		return "s"
	case Minutes:
		return "m"
	case Hours:
		return "h"
	case Days:
		return "d"
	default:
		return "?"
	}
}

func (u TimeUnit) duration() time.Duration {
	switch u {
	case Milliseconds:
		return time.Millisecond
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	default:
		return time.Nanosecond
	}
}

// Time is a duration literal such as 10m. Magnitude fits uint32 at parse time.
type Time struct {
	Magnitude uint64
	Unit      TimeUnit
}

// Duration converts the literal into a time.Duration.
func (t Time) Duration() time.Duration {
	return time.Duration(t.Magnitude) * t.Unit.duration()
}

// String renders the literal as it is written in a query.
func (t Time) String() string {
	return strconv.FormatUint(t.Magnitude, 10) + t.Unit.String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
