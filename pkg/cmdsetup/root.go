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

// Package cmdsetup builds the commands of the tiempod binary.
package cmdsetup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiempodb/tiempodb/pkg/cgroups"
	"github.com/tiempodb/tiempodb/pkg/config"
	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/pkg/version"
)

const logo = `
 _   _                                _ _
| |_(_) ___ _ __ ___  _ __   ___   __| | |__
| __| |/ _ \ '_ ` + "`" + ` _ \| '_ \ / _ \ / _` + "`" + ` | '_ \
| |_| |  __/ | | | | | |_) | (_) | (_| | |_) |
 \__|_|\___|_| |_| |_| .__/ \___/ \__,_|_.__/
                     |_|
`

// NewRoot returns a root command.
func NewRoot(runners ...run.Unit) *cobra.Command {
	logging := logger.Logging{}
	cmd := &cobra.Command{
		Use:               "tiempod",
		DisableAutoGenTag: true,
		Version:           version.Parse(),
		Short:             "tiempod answers InfluxQL queries over HTTP",
		Long: logo + `
tiempod speaks the InfluxDB query protocol and resolves schema statements from a catalog
`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			fmt.Fprint(cmd.OutOrStdout(), logo)
			if err = config.Load("logging", cmd.Flags()); err != nil {
				return err
			}
			if err = logger.Init(logging); err != nil {
				return err
			}
			logger.Infof("CPU Number: %d", cgroups.SetMaxProcs())
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logging.Env, "logging-env", "prod", "the logging")
	cmd.PersistentFlags().StringVar(&logging.Level, "logging-level", "info", "the root level of logging")
	cmd.PersistentFlags().StringSliceVar(&logging.Modules, "logging-modules", nil, "the specific module")
	cmd.PersistentFlags().StringSliceVar(&logging.Levels, "logging-levels", nil, "the level logging of logging")
	cmd.AddCommand(newStandaloneCmd(runners...))
	return cmd
}
