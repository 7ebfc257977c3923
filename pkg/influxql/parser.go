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

// Package influxql parses the InfluxQL dialect into a typed query AST.
package influxql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Parsers are built once in init() and are safe for concurrent use.
var (
	statementParser *participle.Parser[statementGrammar]
	batchParser     *participle.Parser[batchGrammar]
)

func init() {
	options := []participle.Option{
		participle.Lexer(queryTokenizer),
		participle.CaseInsensitive("Keyword"),
		participle.UseLookahead(2),
	}
	var err error
	statementParser, err = participle.Build[statementGrammar](options...)
	if err != nil {
		panic(fmt.Sprintf("failed to build InfluxQL parser: %v", err))
	}
	batchParser, err = participle.Build[batchGrammar](options...)
	if err != nil {
		panic(fmt.Sprintf("failed to build InfluxQL batch parser: %v", err))
	}
}

// Parse parses exactly one statement. Any error is a *ParseError.
func Parse(query string) (Query, error) {
	g, err := statementParser.ParseString("", query)
	if err != nil {
		return nil, toParseError(err)
	}
	return g.toQuery()
}

// ParseBatch parses a semicolon separated list of statements, all or nothing.
func ParseBatch(query string) ([]Query, error) {
	g, err := batchParser.ParseString("", query)
	if err != nil {
		return nil, toParseError(err)
	}
	return convertList(g.Statements, (*statementGrammar).toQuery)
}

// EBNF renders the grammar of the statement parser.
func EBNF() string {
	return statementParser.String()
}

func (g *statementGrammar) toQuery() (Query, error) {
	if g.Select != nil {
		q, err := g.Select.toQuery()
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return g.Show.toQuery()
}

func (g *selectGrammar) toQuery() (*SelectQuery, error) {
	fields, err := convertList(g.Fields, (*fieldGrammar).toProjection)
	if err != nil {
		return nil, err
	}
	where, err := whereConstraints(g.Where)
	if err != nil {
		return nil, err
	}
	q := &SelectQuery{
		From:             unquote(g.From),
		Fields:           fields,
		WhereConstraints: where,
	}
	if g.GroupBy != nil {
		if q.GroupBy, err = g.GroupBy.toGroupBy(); err != nil {
			return nil, err
		}
	}
	if g.OrderBy != nil && g.OrderBy.Direction == "DESC" {
		q.OrderByTime = Desc
	}
	if g.Limits != nil {
		if q.Limit, q.SLimit, err = g.Limits.toLimits(); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (g *fieldGrammar) toProjection() (FieldProjection, error) {
	if g.Function == "" {
		return FieldProjection{FieldName: unquote(g.Name), SelectionType: Identity}, nil
	}
	st, ok := aggregateFunctions[strings.ToLower(g.Function)]
	if !ok {
		return FieldProjection{}, syntaxErrorf(g.Pos, "unknown function %q", g.Function)
	}
	return FieldProjection{FieldName: unquote(g.Argument), SelectionType: st}, nil
}

func (g *groupByGrammar) toGroupBy() (GroupBy, error) {
	var out GroupBy
	if g.Time != nil {
		t, err := g.Time.toTime()
		if err != nil {
			return GroupBy{}, err
		}
		out.ByTime = &t
		if g.TimeField != "" {
			field := unquote(g.TimeField)
			out.ByField = &field
		}
	} else {
		field := unquote(g.Field)
		out.ByField = &field
	}
	if g.Fill != "" {
		out.Fill = fillPolicies[g.Fill]
	}
	return out, nil
}

func (g *limitsGrammar) toLimits() (limit, slimit *uint32, err error) {
	l, s := g.Limit, g.LimitThenS
	if l == nil {
		l, s = g.SLimitThenL, g.SLimit
	}
	if l != nil {
		v, err := l.toUint32()
		if err != nil {
			return nil, nil, err
		}
		limit = &v
	}
	if s != nil {
		v, err := s.toUint32()
		if err != nil {
			return nil, nil, err
		}
		slimit = &v
	}
	return limit, slimit, nil
}

func (g *showGrammar) toQuery() (Query, error) {
	switch {
	case g.FieldKeys != nil:
		return &ShowFieldKeysQuery{From: unquote(g.FieldKeys.From)}, nil
	case g.TagKeys != nil:
		where, err := whereConstraints(g.TagKeys.Where)
		if err != nil {
			return nil, err
		}
		return &ShowTagKeysQuery{From: unquote(g.TagKeys.From), WhereConstraints: where}, nil
	case g.TagValues != nil:
		where, err := whereConstraints(g.TagValues.Where)
		if err != nil {
			return nil, err
		}
		return &ShowTagValuesQuery{
			From:             unquote(g.TagValues.From),
			Key:              unquote(g.TagValues.Key),
			WhereConstraints: where,
		}, nil
	default:
		where, err := whereConstraints(g.Measurements.Where)
		if err != nil {
			return nil, err
		}
		limit, err := g.Measurements.Limit.toUint32()
		if err != nil {
			return nil, err
		}
		return &ShowMeasurementsQuery{WhereConstraints: where, Limit: limit}, nil
	}
}

// whereConstraints flattens a WHERE clause into conditions in source order.
// A missing clause yields an empty list.
func whereConstraints(w *whereGrammar) ([]Condition, error) {
	if w == nil {
		return []Condition{}, nil
	}
	return convertList(flatten(w.Terms, (*conjunctGrammar).expand), (*conditionGrammar).toCondition)
}

func (g *conditionGrammar) toCondition() (Condition, error) {
	if g.Regex != nil {
		return Condition{
			Source:     unquote(g.Regex.Source),
			Comparison: comparisonOperators[g.Regex.Operator],
			Value:      regexBody(g.Regex.Pattern),
		}, nil
	}
	source, err := g.Compare.Left.render()
	if err != nil {
		return Condition{}, err
	}
	value, err := g.Compare.Right.render()
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Source:     source,
		Comparison: comparisonOperators[g.Compare.Operator],
		Value:      value,
	}, nil
}

// render returns the operand as written. Numbers and durations are checked for
// overflow first; now() keeps its offset, as in "now() - 1h".
func (g *operandGrammar) render() (string, error) {
	switch {
	case g.Now:
		if g.Offset == nil {
			return "now()", nil
		}
		if _, err := g.Offset.toTime(); err != nil {
			return "", err
		}
		return "now() " + g.Sign + " " + g.Offset.Value, nil
	case g.Number != nil:
		if _, err := g.Number.toUint32(); err != nil {
			return "", err
		}
		return g.Number.Value, nil
	case g.Duration != nil:
		if _, err := g.Duration.toTime(); err != nil {
			return "", err
		}
		return g.Duration.Value, nil
	default:
		return unquote(g.Ident), nil
	}
}

func (g *numberGrammar) toUint32() (uint32, error) {
	return parseUint32(g.Pos, g.Value)
}

func (g *durationGrammar) toTime() (Time, error) {
	split := strings.IndexFunc(g.Value, func(r rune) bool { return !unicode.IsDigit(r) })
	if split < 0 {
		return Time{}, syntaxErrorf(g.Pos, "duration %q has no unit", g.Value)
	}
	magnitude, err := parseUint32(g.Pos, g.Value[:split])
	if err != nil {
		return Time{}, err
	}
	unit, ok := timeUnits[g.Value[split:]]
	if !ok {
		return Time{}, syntaxErrorf(g.Pos, "unknown time unit %q", g.Value[split:])
	}
	return Time{Magnitude: uint64(magnitude), Unit: unit}, nil
}

func parseUint32(pos lexer.Position, literal string) (uint32, error) {
	v, err := strconv.ParseUint(literal, 10, 32)
	if err != nil {
		return 0, overflowError(pos, literal)
	}
	return uint32(v), nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func regexBody(s string) string {
	if len(s) >= 2 && s[0] == '/' && s[len(s)-1] == '/' {
		return s[1 : len(s)-1]
	}
	return s
}
