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
	"fmt"
	"io"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token rules in priority order. The longest match wins; on equal length the
// earlier rule wins, so keywords beat identifiers of the same text.
var tokenRules = []struct {
	name    string
	pattern string
}{
	{"GroupBy", `(?i)group\s+by\b`},
	{"OrderBy", `(?i)order\s+by\b`},
	{"TagValues", `(?i)tag\s+values\b`},
	{"TagKeys", `(?i)tag\s+keys\b`},
	{"WithKey", `(?i)with\s+key\b`},
	{"Keyword", `(?i)(?:select|from|where|limit|slimit|show|measurements|and)\b`},
	{"Duration", `\d+(?:ns|ms|s|m|h|d)`},
	{"Number", `\d+`},
	{"Regex", `/(?:\\/|[^/])*/`},
	{"QuotedIdent", `"[^"]*"|'[^']*'`},
	{"Ident", `[a-zA-Z][a-zA-Z0-9.]*`},
	{"Operator", `!=~|=~|<>|>=|<=|[-+=<>(),;]`},
}

type tokenRule struct {
	re  *regexp.Regexp
	typ lexer.TokenType
}

// tokenizer is a lexer.Definition choosing the longest match among all rules.
type tokenizer struct {
	symbols map[string]lexer.TokenType
	names   map[lexer.TokenType]string
	rules   []tokenRule
}

var _ lexer.StringDefinition = (*tokenizer)(nil)

func newTokenizer() *tokenizer {
	t := &tokenizer{
		symbols: map[string]lexer.TokenType{"EOF": lexer.EOF},
		names:   map[lexer.TokenType]string{lexer.EOF: "EOF"},
		rules:   make([]tokenRule, 0, len(tokenRules)),
	}
	for i, r := range tokenRules {
		re := regexp.MustCompile(`^(?:` + r.pattern + `)`)
		re.Longest()
		typ := lexer.EOF - 1 - lexer.TokenType(i)
		t.symbols[r.name] = typ
		t.names[typ] = r.name
		t.rules = append(t.rules, tokenRule{re: re, typ: typ})
	}
	return t
}

// Symbols implements lexer.Definition.
func (t *tokenizer) Symbols() map[string]lexer.TokenType {
	return t.symbols
}

// Lex implements lexer.Definition.
func (t *tokenizer) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return t.LexString(filename, string(b))
}

// LexString implements lexer.StringDefinition.
func (t *tokenizer) LexString(filename string, input string) (lexer.Lexer, error) {
	return &tokenStream{
		def:   t,
		input: input,
		pos:   lexer.Position{Filename: filename, Line: 1, Column: 1},
	}, nil
}

type tokenStream struct {
	def   *tokenizer
	input string
	pos   lexer.Position
}

func (s *tokenStream) Next() (lexer.Token, error) {
	s.skipSpace()
	if s.pos.Offset >= len(s.input) {
		return lexer.EOFToken(s.pos), nil
	}
	rest := s.input[s.pos.Offset:]
	best, length := -1, 0
	for i := range s.def.rules {
		loc := s.def.rules[i].re.FindStringIndex(rest)
		if loc != nil && loc[1] > length {
			best, length = i, loc[1]
		}
	}
	if best < 0 {
		rn, _ := utf8.DecodeRuneInString(rest)
		return lexer.Token{}, &lexer.Error{Msg: fmt.Sprintf("invalid token %q", rn), Pos: s.pos}
	}
	tok := lexer.Token{
		Type:  s.def.rules[best].typ,
		Value: rest[:length],
		Pos:   s.pos,
	}
	s.advance(tok.Value)
	return tok, nil
}

func (s *tokenStream) skipSpace() {
	for s.pos.Offset < len(s.input) {
		rn, size := utf8.DecodeRuneInString(s.input[s.pos.Offset:])
		if !unicode.IsSpace(rn) {
			return
		}
		s.advance(s.input[s.pos.Offset : s.pos.Offset+size])
	}
}

func (s *tokenStream) advance(text string) {
	for _, rn := range text {
		if rn == '\n' {
			s.pos.Line++
			s.pos.Column = 1
		} else {
			s.pos.Column++
		}
	}
	s.pos.Offset += len(text)
}

var queryTokenizer = newTokenizer()

// Tokenize splits a query into its lexical tokens, excluding the trailing EOF.
func Tokenize(query string) ([]lexer.Token, error) {
	l, err := queryTokenizer.LexString("", query)
	if err != nil {
		return nil, err
	}
	var tokens []lexer.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, lexicalError(err)
		}
		if tok.EOF() {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// TokenName returns the rule name of a token type, such as "Ident" or "GroupBy".
func TokenName(typ lexer.TokenType) string {
	if name, ok := queryTokenizer.names[typ]; ok {
		return name
	}
	return "Unknown"
}
