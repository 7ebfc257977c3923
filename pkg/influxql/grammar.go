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

//nolint:govet // ignore fieldalignment in this file; layout is the InfluxQL grammar
package influxql

import "github.com/alecthomas/participle/v2/lexer"

// Identifiers are captured with their quotes; literals in the grammar never
// match a quoted identifier because of that. Quotes are stripped when the
// grammar is converted into the AST.

// statementGrammar is the root of a single statement.
type statementGrammar struct {
	Select *selectGrammar `parser:"  @@"`
	Show   *showGrammar   `parser:"| @@"`
}

// batchGrammar is a semicolon separated list of statements.
type batchGrammar struct {
	Statements []*statementGrammar `parser:"@@ ( ';' @@ )* ';'?"`
}

type selectGrammar struct {
	Fields  []*fieldGrammar `parser:"'SELECT' ( @@ ( ',' @@ )* ','? )?"`
	From    string          `parser:"'FROM' @( Ident | QuotedIdent )"`
	Where   *whereGrammar   `parser:"@@?"`
	GroupBy *groupByGrammar `parser:"@@?"`
	OrderBy *orderByGrammar `parser:"@@?"`
	Limits  *limitsGrammar  `parser:"@@?"`
}

type fieldGrammar struct {
	Pos      lexer.Position
	Function string `parser:"(  @Ident '('"`
	Argument string `parser:"   @( Ident | QuotedIdent ) ')'"`
	Name     string `parser:"| @( Ident | QuotedIdent ) )"`
}

// whereGrammar accepts (T AND)* T? where a term may be a parenthesized group of terms.
type whereGrammar struct {
	Terms []*conjunctGrammar `parser:"'WHERE' ( @@ ( 'AND' @@ )* 'AND'? )?"`
}

type conjunctGrammar struct {
	Group     []*conjunctGrammar `parser:"(  '(' ( @@ ( 'AND' @@ )* 'AND'? )? ')'"`
	Condition *conditionGrammar  `parser:"| @@ )"`
}

type conditionGrammar struct {
	Regex   *regexConditionGrammar   `parser:"  @@"`
	Compare *compareConditionGrammar `parser:"| @@"`
}

// regexConditionGrammar only takes a plain identifier on its left side.
type regexConditionGrammar struct {
	Source   string `parser:"@( Ident | QuotedIdent )"`
	Operator string `parser:"@( '=~' | '!=~' )"`
	Pattern  string `parser:"@Regex"`
}

type compareConditionGrammar struct {
	Left     *operandGrammar `parser:"@@"`
	Operator string          `parser:"@( '=' | '<>' | '>=' | '<=' | '>' | '<' )"`
	Right    *operandGrammar `parser:"@@"`
}

type operandGrammar struct {
	Now      bool             `parser:"(  @'now' '(' ')'"`
	Sign     string           `parser:"   ( @( '+' | '-' )"`
	Offset   *durationGrammar `parser:"     @@ )?"`
	Number   *numberGrammar   `parser:"| @@"`
	Duration *durationGrammar `parser:"| @@"`
	Ident    string           `parser:"| @( Ident | QuotedIdent ) )"`
}

type numberGrammar struct {
	Pos   lexer.Position
	Value string `parser:"@Number"`
}

type durationGrammar struct {
	Pos   lexer.Position
	Value string `parser:"@Duration"`
}

type groupByGrammar struct {
	Time      *durationGrammar `parser:"GroupBy (  'time' '(' @@ ')'"`
	TimeField string           `parser:"           ( ',' @( Ident | QuotedIdent ) )?"`
	Field     string           `parser:"         | @( Ident | QuotedIdent ) )"`
	Fill      string           `parser:"( 'fill' '(' @( 'linear' | 'none' | 'null' | 'previous' ) ')' )?"`
}

type orderByGrammar struct {
	Direction string `parser:"OrderBy 'time' @( 'DESC' | 'ASC' )"`
}

// limitsGrammar accepts LIMIT and SLIMIT in either order.
type limitsGrammar struct {
	Limit       *numberGrammar `parser:"(  'LIMIT' @@"`
	LimitThenS  *numberGrammar `parser:"   ( 'SLIMIT' @@ )?"`
	SLimit      *numberGrammar `parser:"| 'SLIMIT' @@"`
	SLimitThenL *numberGrammar `parser:"   ( 'LIMIT' @@ )? )"`
}

type showGrammar struct {
	FieldKeys    *showFieldKeysGrammar    `parser:"'SHOW' (  @@"`
	TagKeys      *showTagKeysGrammar      `parser:"        | @@"`
	TagValues    *showTagValuesGrammar    `parser:"        | @@"`
	Measurements *showMeasurementsGrammar `parser:"        | @@ )"`
}

// showFieldKeysGrammar matches FIELD and KEYS as exact-case words.
type showFieldKeysGrammar struct {
	From string `parser:"'FIELD' 'KEYS' 'FROM' @( Ident | QuotedIdent )"`
}

type showTagKeysGrammar struct {
	From  string        `parser:"TagKeys 'FROM' @( Ident | QuotedIdent )"`
	Where *whereGrammar `parser:"@@?"`
}

type showTagValuesGrammar struct {
	From  string        `parser:"TagValues 'FROM' @( Ident | QuotedIdent )"`
	Key   string        `parser:"WithKey '=' @( Ident | QuotedIdent )"`
	Where *whereGrammar `parser:"@@?"`
}

type showMeasurementsGrammar struct {
	Where *whereGrammar  `parser:"'MEASUREMENTS' @@?"`
	Limit *numberGrammar `parser:"'LIMIT' @@"`
}

func (c *conjunctGrammar) expand() ([]*conjunctGrammar, *conditionGrammar) {
	return c.Group, c.Condition
}
