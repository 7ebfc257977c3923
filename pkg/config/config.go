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

// Package config loads flag values from a config file and TIEMPO_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment variable bound to a flag.
const EnvPrefix = "TIEMPO"

// Load applies values to the unset flags of fs. Sources in priority order are
// environment variables and the config file "<name>.{yaml,json,toml}" found
// in paths, or the working directory when no path is given.
func Load(name string, fs *pflag.FlagSet, paths ...string) error {
	v := viper.New()
	v.SetConfigName(name)
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return err
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return BindFlags(fs, v, EnvPrefix)
}

// BindFlags binds each flag to its viper key; a flag such as --http-port
// reads the environment variable <envPrefix>_HTTP_PORT.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper, envPrefix string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			err = multierr.Append(err, v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)))
		}
		if !f.Changed && v.IsSet(f.Name) {
			err = multierr.Append(err, setFlag(fs, f, v.Get(f.Name)))
		}
	})
	return err
}

// setFlag assigns a config value; list values from a file are applied element wise.
func setFlag(fs *pflag.FlagSet, f *pflag.Flag, val interface{}) error {
	if list, ok := val.([]interface{}); ok {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			items := make([]string, 0, len(list))
			for _, item := range list {
				items = append(items, fmt.Sprintf("%v", item))
			}
			return sv.Replace(items)
		}
	}
	return fs.Set(f.Name, fmt.Sprintf("%v", val))
}
