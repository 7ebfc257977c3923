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

// Package cmd implements the commands of tiempoctl.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tiempodb/tiempodb/pkg/config"
	"github.com/tiempodb/tiempodb/pkg/version"
)

var (
	addr     string
	output   string
	filePath string
	batch    bool
)

// NewRoot returns the root command.
func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "tiempoctl",
		DisableAutoGenTag: true,
		Version:           version.Parse(),
		Short:             "tiempoctl is the command line tool of tiempod",
		SilenceUsage:      true,
	}
	RootCmdFlags(cmd)
	return cmd
}

// RootCmdFlags binds the flags and sub commands to a root command.
// Flags can also be set through TIEMPO_ prefixed environment variables.
func RootCmdFlags(command *cobra.Command) {
	command.PersistentFlags().StringVarP(&addr, "addr", "a", "http://127.0.0.1:8086", "the address of tiempod")
	command.PersistentFlags().StringVarP(&output, "output", "o", "yaml", "the output format, json or yaml")
	command.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		v := viper.New()
		v.SetEnvPrefix(config.EnvPrefix)
		v.AutomaticEnv()
		if err := config.BindFlags(cmd.Flags(), v, config.EnvPrefix); err != nil {
			return err
		}
		_, err := newPrinter(cmd.OutOrStdout(), output)
		return err
	}
	command.AddCommand(newParseCmd(), newTokensCmd(), newQueryCmd())
}
