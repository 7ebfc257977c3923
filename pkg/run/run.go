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

// Package run implements a lifecycle framework to control modules.
package run

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/tiempodb/tiempodb/pkg/config"
	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/version"
)

// FlagSet holds a pflag.FlagSet as well as an exported Name variable for
// allowing improved help usage information.
type FlagSet struct {
	*pflag.FlagSet
	Name string
}

// NewFlagSet returns a new FlagSet for usage in Config objects.
func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		FlagSet: pflag.NewFlagSet(name, pflag.ContinueOnError),
		Name:    name,
	}
}

// Unit is the default interface an object needs to implement for it to be able
// to register with a Group.
type Unit interface {
	Name() string
}

// Config is implemented by Units that manage their own configuration through flags.
// A Validate error stops the Group immediately.
type Config interface {
	Unit
	FlagSet() *FlagSet
	Validate() error
}

// PreRunner is implemented by Units that need a stage before the Services start.
// A PreRun error stops the Group immediately.
type PreRunner interface {
	Unit
	PreRun(context.Context) error
}

// StopNotify sends the stopped event to the running system.
type StopNotify <-chan struct{}

// Service is implemented by Units running until shutdown. Serve must not
// block; the returned channel is closed once the service stops.
// GracefulStop must stop the service and close that channel.
type Service interface {
	Unit
	Serve() StopNotify
	GracefulStop()
}

// Group builds on https://github.com/oklog/run to provide a deterministic way
// to manage service lifecycles.
type Group struct {
	f            *FlagSet
	readyCh      chan struct{}
	log          *logger.Logger
	name         string
	configPaths  []string
	r            run.Group
	c            []Config
	p            []PreRunner
	s            []Service
	showRunGroup bool
	configured   bool
}

// NewGroup return a Group with input name.
func NewGroup(name string) Group {
	return Group{
		name:    name,
		readyCh: make(chan struct{}),
	}
}

// Name shows the name of the group.
func (g Group) Name() string {
	return g.name
}

// Register inspects the Units and registers them for every bootstrap phase
// they implement. The result tells for each Unit whether it registered for
// at least one phase.
func (g *Group) Register(units ...Unit) []bool {
	g.log = logger.GetLogger(g.name)
	hasRegistered := make([]bool, len(units))
	for idx := range units {
		if !g.configured {
			if c, ok := units[idx].(Config); ok {
				g.c = append(g.c, c)
				hasRegistered[idx] = true
			}
		}
		if p, ok := units[idx].(PreRunner); ok {
			g.p = append(g.p, p)
			hasRegistered[idx] = true
		}
		if s, ok := units[idx].(Service); ok {
			g.s = append(g.s, s)
			hasRegistered[idx] = true
		}
	}
	return hasRegistered
}

// RegisterFlags returns FlagSet contains Flags in all modules.
func (g *Group) RegisterFlags() *FlagSet {
	if g.log == nil {
		g.log = logger.GetLogger(g.name)
	}
	g.f = NewFlagSet(g.name)
	g.f.SortFlags = false
	g.f.Usage = func() {
		fmt.Printf("Flags:\n")
		g.f.PrintDefaults()
	}

	gFS := NewFlagSet("Common Service options")
	gFS.SortFlags = false
	gFS.StringVarP(&g.name, "name", "n", g.name, `name of this service`)
	gFS.StringSliceVar(&g.configPaths, "config-path", nil, "directories searched for the config file")
	gFS.BoolVar(&g.showRunGroup, "show-rungroup-units", false, "show rungroup units")
	g.f.AddFlagSet(gFS.FlagSet)

	for idx := range g.c {
		fs := g.c[idx].FlagSet()
		if fs == nil {
			g.log.Debug().Str("name", g.c[idx].Name()).Msg("config object did not return a flagset")
			continue
		}
		g.log.Debug().Str("name", g.c[idx].Name()).Int("registered", idx+1).Int("total", len(g.c)).Msg("register flags")
		fs.VisitAll(func(f *pflag.Flag) {
			if g.f.Lookup(f.Name) != nil {
				g.log.Warn().Str("name", f.Name).Int("registered", idx+1).Msg("ignoring duplicate flag")
				return
			}
			g.f.AddFlag(f)
		})
	}
	return g.f
}

// RunConfig runs the Config phase of all registered Config aware Units.
// An error is fatal to the application.
func (g *Group) RunConfig() (interrupted bool, err error) {
	g.log = logger.GetLogger(g.name)
	g.configured = true

	if g.name == "" {
		g.name = path.Base(os.Args[0])
	}
	if g.f == nil {
		g.RegisterFlags()
	}

	defer func() {
		if err != nil {
			g.log.Error().Err(err).Msg("unexpected exit")
		}
	}()

	if err = config.Load(g.f.Name, g.f.FlagSet, g.configPaths...); err != nil {
		return false, errors.Wrapf(err, "%s fails to load config", g.f.Name)
	}

	if g.showRunGroup {
		fmt.Println(g.ListUnits())
		return true, nil
	}

	for idx := range g.c {
		g.log.Debug().Str("name", g.c[idx].Name()).Int("ran", idx+1).Int("total", len(g.c)).Msg("validate config")
		if vErr := g.c[idx].Validate(); vErr != nil {
			err = multierr.Append(err, errors.WithMessage(vErr, g.c[idx].Name()))
		}
	}
	if err != nil {
		return false, err
	}

	g.log.Info().Str("version", version.Parse()).Msg("started")
	return false, nil
}

// Run executes all phases of all registered Units and blocks until one
// Service stops. The phases are:
//
//	Config phase (serially, in order of Unit registration)
//	  - Validate()       Exit on the first error.
//	PreRunner phase (serially, in order of Unit registration)
//	  - PreRun(ctx)      Exit on the first error.
//	Service phase (concurrently)
//	  - Serve()          Start all Service Units.
//	  - Wait             Block until one of them stops.
//	  - GracefulStop()   Stop all Service Units.
func (g *Group) Run(ctx context.Context) (err error) {
	if interrupted, errRun := g.RunConfig(); interrupted || errRun != nil {
		return errRun
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = g.log.WithContext(ctx)
	for idx := range g.p {
		g.log.Debug().Int("ran", idx+1).Int("total", len(g.p)).Str("name", g.p[idx].Name()).Msg("pre-run")
		if err := g.p[idx].PreRun(ctx); err != nil {
			return errors.WithMessagef(err, "%s fails to pre-run", g.p[idx].Name())
		}
	}

	swg := &sync.WaitGroup{}
	swg.Add(len(g.s))
	go func() {
		swg.Wait()
		close(g.readyCh)
	}()
	for idx := range g.s {
		s := g.s[idx]
		g.log.Debug().Int("total", len(g.s)).Int("ran", idx+1).Str("name", s.Name()).Msg("serve")
		g.r.Add(func() error {
			notify := s.Serve()
			swg.Done()
			<-notify
			return nil
		}, func(_ error) {
			g.log.Debug().Int("total", len(g.s)).Int("ran", idx+1).Str("name", s.Name()).Msg("stop")
			s.GracefulStop()
		})
	}
	return g.r.Run()
}

// ListUnits returns a list of all Group phases and the Units registered to each of them.
func (g Group) ListUnits() string {
	var b strings.Builder
	t := "cli"
	list := func(phase string, names []string) {
		if len(names) == 0 {
			return
		}
		b.WriteString("\n- " + phase + ": ")
		for _, n := range names {
			b.WriteString(n + " ")
		}
	}
	names := func(n int, name func(int) string) []string {
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, name(i))
		}
		return out
	}
	list("config", names(len(g.c), func(i int) string { return g.c[i].Name() }))
	list("prerun", names(len(g.p), func(i int) string { return g.p[i].Name() }))
	if len(g.s) > 0 {
		t = "svc"
	}
	list("serve ", names(len(g.s), func(i int) string { return g.s[i].Name() }))
	return fmt.Sprintf("Group: %s [%s]%s", g.name, t, b.String())
}

// WaitTillReady blocks the goroutine till all modules are ready.
func (g *Group) WaitTillReady() {
	<-g.readyCh
}
