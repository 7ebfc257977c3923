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
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "query query",
		Short:   "Run a query on tiempod",
		Example: `  tiempoctl query -a http://127.0.0.1:8086 'SHOW MEASUREMENTS LIMIT 10'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			resp, err := resty.New().R().
				SetContext(cmd.Context()).
				SetFormData(map[string]string{"q": strings.Join(args, " ")}).
				Post(strings.TrimSuffix(addr, "/") + "/query")
			if err != nil {
				return err
			}
			var body map[string]interface{}
			if err = json.Unmarshal(resp.Body(), &body); err != nil {
				return errors.Wrapf(err, "unexpected response %s", resp.Status())
			}
			if resp.StatusCode() != http.StatusOK {
				msg, _ := body["error"].(string)
				return errors.Errorf("%s: %s", resp.Status(), msg)
			}
			return p(0, body)
		},
	}
}
