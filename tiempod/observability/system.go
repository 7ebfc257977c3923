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

// Package observability samples host metrics next to the query metrics.
package observability

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/meter"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/pkg/timestamp"
)

// DefaultSchedule is how often host metrics are sampled.
const DefaultSchedule = "@every 15s"

// Sources of the samples, replaced in tests.
var (
	cpuCountsFunc = cpu.Counts
	cpuTimesFunc  = cpu.Times
	memoryFunc    = mem.VirtualMemory
	uptimeFunc    = host.Uptime
)

var (
	_ run.Config    = (*SystemCollector)(nil)
	_ run.PreRunner = (*SystemCollector)(nil)
	_ run.Service   = (*SystemCollector)(nil)
)

// SystemCollector publishes CPU, memory and uptime gauges on a cron schedule.
type SystemCollector struct {
	provider    meter.Provider
	clock       timestamp.Clock
	scheduler   *timestamp.Scheduler
	closer      *run.Closer
	l           *logger.Logger
	cpuNum      meter.Gauge
	cpuState    meter.Gauge
	memoryState meter.Gauge
	upTime      meter.Gauge
	schedule    string
}

// NewSystemCollector returns a collector creating its gauges through provider.
func NewSystemCollector(provider meter.Provider, clock timestamp.Clock) *SystemCollector {
	if clock == nil {
		clock = timestamp.NewClock()
	}
	return &SystemCollector{
		provider: provider,
		clock:    clock,
		closer:   run.NewCloser(),
		l:        logger.GetLogger("system-metrics"),
	}
}

// Name implements run.Unit.
func (c *SystemCollector) Name() string {
	return "system-metrics"
}

// FlagSet implements run.Config.
func (c *SystemCollector) FlagSet() *run.FlagSet {
	fs := run.NewFlagSet("system-metrics")
	fs.StringVar(&c.schedule, "system-metrics-schedule", DefaultSchedule,
		"the cron schedule sampling host metrics, empty to disable")
	return fs
}

// Validate implements run.Config.
func (c *SystemCollector) Validate() error {
	if c.schedule == "" {
		return nil
	}
	_, err := timestamp.ParseSchedule(c.schedule)
	return err
}

// PreRun registers the gauges.
func (c *SystemCollector) PreRun(ctx context.Context) error {
	c.l = logger.Fetch(ctx, c.Name())
	c.cpuNum = c.provider.Gauge("cpu_num")
	c.cpuState = c.provider.Gauge("cpu_state", "kind")
	c.memoryState = c.provider.Gauge("memory_state", "kind")
	c.upTime = c.provider.Gauge("up_time")
	return nil
}

// Serve samples once, then on every tick of the schedule.
func (c *SystemCollector) Serve() run.StopNotify {
	if c.schedule == "" {
		c.l.Info().Msg("host metrics are disabled")
		return c.closer.CloseNotify()
	}
	c.collect()
	c.scheduler = timestamp.NewScheduler(c.l, c.clock)
	if err := c.scheduler.Register("collector", c.schedule, func(time.Time) bool {
		c.collect()
		return true
	}); err != nil {
		c.l.Error().Err(err).Msg("failed to schedule host metrics")
	}
	return c.closer.CloseNotify()
}

// GracefulStop stops sampling.
func (c *SystemCollector) GracefulStop() {
	if c.scheduler != nil {
		c.scheduler.Close()
	}
	c.closer.CloseThenWait()
}

func (c *SystemCollector) collect() {
	for _, sample := range []func() error{c.collectCPU, c.collectMemory, c.collectUpTime} {
		if err := sample(); err != nil {
			c.l.Warn().Err(err).Msg("failed to sample host metrics")
		}
	}
}

func (c *SystemCollector) collectCPU() error {
	n, err := cpuCountsFunc(true)
	if err != nil {
		return errors.Wrap(err, "cannot count cpus")
	}
	c.cpuNum.Set(float64(n))
	times, err := cpuTimesFunc(false)
	if err != nil {
		return errors.Wrap(err, "cannot read cpu times")
	}
	if len(times) == 0 {
		return errors.New("no cpu times reported")
	}
	t := times[0]
	total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	if total == 0 {
		return nil
	}
	for kind, v := range map[string]float64{
		"user": t.User, "system": t.System, "idle": t.Idle, "nice": t.Nice,
		"iowait": t.Iowait, "irq": t.Irq, "softirq": t.Softirq, "steal": t.Steal,
	} {
		c.cpuState.Set(v/total, kind)
	}
	return nil
}

func (c *SystemCollector) collectMemory() error {
	vm, err := memoryFunc()
	if err != nil {
		return errors.Wrap(err, "cannot read memory")
	}
	c.memoryState.Set(vm.UsedPercent/100, "used_percent")
	c.memoryState.Set(float64(vm.Used), "used")
	c.memoryState.Set(float64(vm.Total), "total")
	return nil
}

func (c *SystemCollector) collectUpTime() error {
	up, err := uptimeFunc()
	if err != nil {
		return errors.Wrap(err, "cannot read uptime")
	}
	c.upTime.Set(float64(up))
	return nil
}
