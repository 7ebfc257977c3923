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

package cmdsetup

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/meter"
	"github.com/tiempodb/tiempodb/pkg/meter/prom"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/pkg/timestamp"
	"github.com/tiempodb/tiempodb/pkg/version"
	"github.com/tiempodb/tiempodb/tiempod/liaison/http"
	"github.com/tiempodb/tiempodb/tiempod/observability"
	"github.com/tiempodb/tiempodb/tiempod/query"
	"github.com/tiempodb/tiempodb/tiempod/query/catalog"
)

func newStandaloneCmd(runners ...run.Unit) *cobra.Command {
	l := logger.GetLogger("bootstrap")
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	root := meter.NewHierarchicalScope("tiempo", "_")
	provider := prom.NewProvider(root.SubScope("query"), reg)

	catalogSvc := catalog.NewService()
	engine, err := query.NewEngine(catalogSvc, query.WithMeterProvider(provider))
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initiate query engine")
	}
	httpServer := http.NewServer(engine, reg)
	systemMetrics := observability.NewSystemCollector(prom.NewProvider(root.SubScope("system"), reg), timestamp.NewClock())

	var units []run.Unit
	units = append(units, runners...)
	units = append(units,
		systemMetrics,
		catalogSvc,
		engine,
		httpServer,
	)
	standaloneGroup := run.NewGroup("standalone")
	// Meta the run Group units.
	standaloneGroup.Register(units...)

	standaloneCmd := &cobra.Command{
		Use:     "standalone",
		Version: version.Parse(),
		Short:   "Run as the standalone server",
		RunE: func(_ *cobra.Command, _ []string) error {
			logger.GetLogger().Info().Msg("starting as a standalone server")
			// Spawn our go routines and wait for shutdown.
			if err := standaloneGroup.Run(context.Background()); err != nil {
				logger.GetLogger().Error().Err(err).Stack().Str("name", standaloneGroup.Name()).Msg("Exit")
				return err
			}
			return nil
		},
	}
	standaloneCmd.Flags().AddFlagSet(standaloneGroup.RegisterFlags().FlagSet)
	return standaloneCmd
}
