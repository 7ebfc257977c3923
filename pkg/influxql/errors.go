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
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrNumberTooBig is wrapped by every ParseError of kind ErrorKindOverflow.
var ErrNumberTooBig = errors.New("number is too big")

// ErrorKind classifies a ParseError.
type ErrorKind int

// Possible values are LEXICAL, SYNTAX, OVERFLOW.
const (
	ErrorKindLexical ErrorKind = iota
	ErrorKindSyntax
	ErrorKindOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindLexical:
		return "lexical"
	case ErrorKindSyntax:
		return "syntax"
	case ErrorKindOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// ParseError is returned by Parse for any input it does not accept.
type ParseError struct {
	cause      error
	Msg        string
	Unexpected string
	Expected   string
	Pos        lexer.Position
	Kind       ErrorKind
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s error: %s", e.Pos.Line, e.Pos.Column, e.Kind, e.Msg)
}

// Unwrap returns ErrNumberTooBig for overflow errors and the underlying parser error otherwise.
func (e *ParseError) Unwrap() error {
	return e.cause
}

func overflowError(pos lexer.Position, literal string) *ParseError {
	return &ParseError{
		Kind:       ErrorKindOverflow,
		Pos:        pos,
		Msg:        fmt.Sprintf("%s: %s", ErrNumberTooBig, literal),
		Unexpected: literal,
		cause:      ErrNumberTooBig,
	}
}

func syntaxErrorf(pos lexer.Position, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind: ErrorKindSyntax,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func lexicalError(err error) error {
	var lexErr *lexer.Error
	if !errors.As(err, &lexErr) {
		return err
	}
	return &ParseError{
		Kind:  ErrorKindLexical,
		Pos:   lexErr.Pos,
		Msg:   lexErr.Msg,
		cause: err,
	}
}

// toParseError converts errors reported by participle into a ParseError.
func toParseError(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return lexicalError(lexErr)
	}
	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) {
		out := &ParseError{
			Kind:     ErrorKindSyntax,
			Pos:      unexpected.Unexpected.Pos,
			Msg:      unexpected.Message(),
			Expected: expectedOf(unexpected),
			cause:    err,
		}
		if unexpected.Unexpected.EOF() {
			out.Unexpected = "EOF"
		} else {
			out.Unexpected = unexpected.Unexpected.Value
		}
		return out
	}
	var perr participle.Error
	if errors.As(err, &perr) {
		return &ParseError{
			Kind:  ErrorKindSyntax,
			Pos:   perr.Position(),
			Msg:   perr.Message(),
			cause: err,
		}
	}
	return &ParseError{Kind: ErrorKindSyntax, Msg: err.Error(), cause: err}
}

// expectedOf extracts the expected grammar node from the participle message.
func expectedOf(err *participle.UnexpectedTokenError) string {
	if err.Expect != "" {
		return err.Expect
	}
	msg := err.Message()
	const marker = " (expected "
	if i := strings.Index(msg, marker); i >= 0 && strings.HasSuffix(msg, ")") {
		return msg[i+len(marker) : len(msg)-1]
	}
	return ""
}
