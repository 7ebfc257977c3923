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

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/tiempod/query"
)

// HeaderRequestID carries the id assigned to every request.
const HeaderRequestID = "X-Request-Id"

// StatusClientClosedRequest answers a query whose client went away first.
const StatusClientClosedRequest = 499

type requestIDKey struct{}

type errorBody struct {
	Error string `json:"error"`
}

func (p *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (p *server) query(w http.ResponseWriter, r *http.Request) {
	l := p.l.With().Str("request_id", requestIDFrom(r.Context())).Logger()
	// Percent-encoding at most triples the size of the query in a form body.
	r.Body = http.MaxBytesReader(w, r.Body, 3*int64(p.maxQuerySize)+1024)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ql := r.Form.Get("q")
	switch {
	case ql == "":
		writeError(w, http.StatusBadRequest, `missing required parameter "q"`)
		return
	case int64(len(ql)) > int64(p.maxQuerySize):
		writeError(w, http.StatusRequestEntityTooLarge, "query exceeds "+p.maxQuerySize.String())
		return
	}

	ctx := r.Context()
	if timeout := p.queryTimeout.Value(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := p.engine.Run(ctx, ql)
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			l.Error().Err(err).Str("ql", ql).Msg("failed to run query")
		} else {
			l.Debug().Err(err).Str("ql", ql).Msg("rejected query")
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func statusOf(err error) int {
	var pe *influxql.ParseError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrEngineClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
