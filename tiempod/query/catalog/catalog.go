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

package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/tiempodb/tiempodb/pkg/influxql"
	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/run"
	"github.com/tiempodb/tiempodb/tiempod/query"
)

var (
	_ query.Executor = (*Catalog)(nil)
	_ run.Config     = (*Catalog)(nil)
	_ run.PreRunner  = (*Catalog)(nil)
	_ run.Service    = (*Catalog)(nil)
)

const defaultSettle = 200 * time.Millisecond

// Catalog implements query.Executor over a Schema. Data points are not
// stored, so SELECT answers carry columns and no rows.
type Catalog struct {
	idx     atomic.Pointer[index]
	l       *logger.Logger
	watcher *fsnotify.Watcher
	closer  *run.Closer
	file    string
	settle  time.Duration
	watch   bool
}

// New returns a Catalog serving s.
func New(s *Schema) (*Catalog, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c := &Catalog{closer: run.NewCloser(), settle: defaultSettle, l: logger.GetLogger("catalog")}
	c.idx.Store(newIndex(s))
	return c, nil
}

// NewService returns a Catalog loading its schema file during PreRun.
func NewService() *Catalog {
	c := &Catalog{closer: run.NewCloser(), settle: defaultSettle, l: logger.GetLogger("catalog")}
	c.idx.Store(newIndex(&Schema{}))
	return c
}

// Name implements run.Unit.
func (c *Catalog) Name() string {
	return "catalog"
}

// FlagSet implements run.Config.
func (c *Catalog) FlagSet() *run.FlagSet {
	fs := run.NewFlagSet("catalog")
	fs.StringVar(&c.file, "catalog-file", "", "the YAML file describing measurements, tags and fields")
	fs.BoolVar(&c.watch, "catalog-watch", true, "reload the catalog file when it changes")
	return fs
}

// Validate implements run.Config.
func (c *Catalog) Validate() error {
	return nil
}

// PreRun loads the schema file when one is configured and starts watching it.
func (c *Catalog) PreRun(ctx context.Context) error {
	c.l = logger.Fetch(ctx, c.Name())
	if c.file == "" {
		c.l.Warn().Msg("no catalog file is configured, the catalog is empty")
		return nil
	}
	if err := c.load(); err != nil {
		return err
	}
	if !c.watch {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err = watcher.Add(c.file); err != nil {
		_ = watcher.Close()
		return errors.Wrapf(err, "failed to watch catalog file %s", c.file)
	}
	c.watcher = watcher
	return nil
}

// Serve reloads the schema on file changes until GracefulStop.
func (c *Catalog) Serve() run.StopNotify {
	if c.watcher != nil && c.closer.AddRunning() {
		go c.watchFileChanges()
	}
	return c.closer.CloseNotify()
}

// GracefulStop stops watching the schema file.
func (c *Catalog) GracefulStop() {
	c.closer.CloseThenWait()
	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			c.l.Error().Err(err).Msg("failed to close fsnotify watcher")
		}
	}
}

func (c *Catalog) load() error {
	s, err := DecodeFile(c.file)
	if err != nil {
		return err
	}
	c.idx.Store(newIndex(s))
	c.l.Info().Str("file", c.file).Int("measurements", len(s.Measurements)).Msg("catalog loaded")
	return nil
}

// Measurements lists measurement names up to the statement limit.
func (c *Catalog) Measurements(ctx context.Context, q *influxql.ShowMeasurementsQuery) ([]query.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := c.idx.Load()
	names := idx.names
	if uint64(len(names)) > uint64(q.Limit) {
		names = names[:q.Limit]
	}
	if len(names) == 0 {
		return []query.Series{}, nil
	}
	s := query.NewSeries("measurements", "name")
	for _, n := range names {
		s.Append(n)
	}
	return []query.Series{s}, nil
}

// TagKeys lists the tag keys of a measurement.
func (c *Catalog) TagKeys(ctx context.Context, q *influxql.ShowTagKeysQuery) ([]query.Series, error) {
	m, err := c.measurement(ctx, q.From)
	if m == nil || err != nil {
		return []query.Series{}, err
	}
	s := query.NewSeries(q.From, "tagKey")
	for _, k := range m.tagKeys {
		s.Append(k)
	}
	return []query.Series{s}, nil
}

// TagValues lists the values of one tag key.
func (c *Catalog) TagValues(ctx context.Context, q *influxql.ShowTagValuesQuery) ([]query.Series, error) {
	m, err := c.measurement(ctx, q.From)
	if m == nil || err != nil {
		return []query.Series{}, err
	}
	values, ok := m.tagValues[q.Key]
	if !ok {
		return []query.Series{}, nil
	}
	s := query.NewSeries(q.From, "key", "value")
	for _, v := range values {
		s.Append(q.Key, v)
	}
	return []query.Series{s}, nil
}

// FieldKeys lists the field keys of a measurement with their types.
func (c *Catalog) FieldKeys(ctx context.Context, q *influxql.ShowFieldKeysQuery) ([]query.Series, error) {
	m, err := c.measurement(ctx, q.From)
	if m == nil || err != nil {
		return []query.Series{}, err
	}
	s := query.NewSeries(q.From, "fieldKey", "fieldType")
	for _, f := range m.fields {
		s.Append(f.Key, f.Type)
	}
	return []query.Series{s}, nil
}

// Select answers the column layout of the projection.
func (c *Catalog) Select(ctx context.Context, q *influxql.SelectQuery) ([]query.Series, error) {
	m, err := c.measurement(ctx, q.From)
	if m == nil || err != nil {
		return []query.Series{}, err
	}
	columns := make([]string, 0, len(q.Fields)+1)
	columns = append(columns, "time")
	for _, f := range q.Fields {
		columns = append(columns, columnName(f))
	}
	return []query.Series{query.NewSeries(q.From, columns...)}, nil
}

func (c *Catalog) measurement(ctx context.Context, name string) (*measurementIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithMessage(err, "catalog lookup aborted")
	}
	return c.idx.Load().measurements[name], nil
}

// columnName names an aggregate column after its function, as InfluxDB does.
func columnName(f influxql.FieldProjection) string {
	if f.SelectionType == influxql.Identity {
		return f.FieldName
	}
	return f.SelectionType.String()
}
