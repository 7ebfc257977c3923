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
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/tiempoctl/pkg/file"
)

var errNoInput = errors.New("pass a query as arguments or a file through -f")

type statement struct {
	Statement influxql.Query    `json:"statement"`
	Kind      influxql.QueryKind `json:"kind"`
}

func newParseCmd() *cobra.Command {
	var grammar bool
	parseCmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Parse InfluxQL and print the statement tree",
		Example: `  tiempoctl parse 'SELECT mean(usage) FROM cpu GROUP BY time(1m)'
  tiempoctl parse -b -f queries.iql -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			if grammar {
				_, err = cmd.OutOrStdout().Write([]byte(influxql.EBNF() + "\n"))
				return err
			}
			scripts, err := readScripts(cmd, args)
			if err != nil {
				return err
			}
			index := 0
			for _, script := range scripts {
				queries, err := parseScript(script)
				if err != nil {
					return err
				}
				for _, q := range queries {
					if err := p(index, statement{Kind: q.Kind(), Statement: q}); err != nil {
						return err
					}
					index++
				}
			}
			return nil
		},
	}
	parseCmd.Flags().StringVarP(&filePath, "file", "f", "", "read the query from a file, a directory or stdin with \"-\"")
	parseCmd.Flags().BoolVarP(&batch, "batch", "b", false, "accept semicolon separated statements")
	parseCmd.Flags().BoolVar(&grammar, "grammar", false, "print the grammar in EBNF")
	return parseCmd
}

func readScripts(cmd *cobra.Command, args []string) ([]string, error) {
	if filePath == "" {
		if len(args) == 0 {
			return nil, errNoInput
		}
		return []string{strings.Join(args, " ")}, nil
	}
	contents, err := file.Read(filePath, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	scripts := make([]string, 0, len(contents))
	for _, c := range contents {
		scripts = append(scripts, strings.TrimSpace(string(c)))
	}
	return scripts, nil
}

func parseScript(script string) ([]influxql.Query, error) {
	if batch {
		return influxql.ParseBatch(script)
	}
	q, err := influxql.Parse(script)
	if err != nil {
		return nil, err
	}
	return []influxql.Query{q}, nil
}
