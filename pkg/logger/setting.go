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

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const rootName = "ROOT"

var root = rootLogger{}

type rootLogger struct {
	l    *Logger
	m    sync.Mutex
	done uint32
}

func (rl *rootLogger) verify() {
	if atomic.LoadUint32(&rl.done) == 0 {
		rl.setDefault()
	}
}

func (rl *rootLogger) setDefault() {
	rl.m.Lock()
	defer rl.m.Unlock()
	if rl.done == 0 {
		defer atomic.StoreUint32(&rl.done, 1)
		var err error
		rl.l, err = getLogger(Logging{
			Env:   "prod",
			Level: "info",
		}, os.Stdout)
		if err != nil {
			panic(err)
		}
	}
}

func (rl *rootLogger) set(cfg Logging, out io.Writer) error {
	rl.m.Lock()
	defer rl.m.Unlock()
	l, err := getLogger(cfg, out)
	if err != nil {
		return err
	}
	rl.l = l
	atomic.StoreUint32(&rl.done, 1)
	return nil
}

// GetLogger returns a Logger for the scope, or the root Logger if scope is empty.
func GetLogger(scope ...string) *Logger {
	root.verify()
	if len(scope) < 1 {
		return root.l
	}
	return root.l.Named(scope...)
}

// Init initializes the root Logger. It writes to stdout.
func Init(cfg Logging) error {
	return root.set(cfg, os.Stdout)
}

// InitWithWriter initializes the root Logger writing to out.
func InitWithWriter(cfg Logging, out io.Writer) error {
	return root.set(cfg, out)
}

func getLogger(cfg Logging, out io.Writer) (*Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid logging level %q", cfg.Level)
	}
	modules, err := moduleLevels(cfg.Modules, cfg.Levels)
	if err != nil {
		return nil, err
	}
	var w io.Writer
	dev := cfg.Env == "dev"
	if dev {
		cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		cw.FormatLevel = func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		}
		cw.FormatFieldName = func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		}
		w = cw
	} else {
		w = out
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{module: rootName, modules: modules, development: dev, Logger: &l}, nil
}

func moduleLevels(modules, levels []string) (map[string]zerolog.Level, error) {
	if len(modules) != len(levels) {
		return nil, errors.Errorf("%d modules but %d levels are configured", len(modules), len(levels))
	}
	out := make(map[string]zerolog.Level, len(modules))
	for i, m := range modules {
		lvl, err := zerolog.ParseLevel(strings.ToLower(levels[i]))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid logging level %q of module %s", levels[i], m)
		}
		out[strings.ToUpper(m)] = lvl
	}
	return out, nil
}
