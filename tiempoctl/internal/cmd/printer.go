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

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

var errUnknownOutput = errors.New("unknown output format")

type printer func(index int, v interface{}) error

func newPrinter(w io.Writer, format string) (printer, error) {
	switch format {
	case "json":
		return func(_ int, v interface{}) error {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(b))
			return err
		}, nil
	case "yaml":
		return func(index int, v interface{}) error {
			b, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			if index > 0 {
				fmt.Fprintln(w, "---")
			}
			_, err = fmt.Fprint(w, string(b))
			return err
		}, nil
	default:
		return nil, errors.WithMessagef(errUnknownOutput, "%q", format)
	}
}
