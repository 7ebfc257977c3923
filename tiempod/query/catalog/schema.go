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

// Package catalog answers schema statements from a static YAML description
// of measurements, tags and fields.
package catalog

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Field types understood by the catalog.
const (
	FieldFloat   = "float"
	FieldInteger = "integer"
	FieldString  = "string"
	FieldBoolean = "boolean"
)

// Schema is the document a catalog file holds.
type Schema struct {
	Measurements []Measurement `yaml:"measurements"`
}

// Measurement describes the tags and fields of one measurement.
type Measurement struct {
	Name   string  `yaml:"name"`
	Tags   []Tag   `yaml:"tags"`
	Fields []Field `yaml:"fields"`
}

// Tag is a tag key with its known values.
type Tag struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

// Field is a field key with its value type.
type Field struct {
	Key  string `yaml:"key"`
	Type string `yaml:"type"`
}

// Decode reads a schema and rejects unknown keys.
func Decode(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	s := &Schema{}
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to decode schema")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeFile reads the schema stored at path.
func DecodeFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open schema file")
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return s, nil
}

// Validate reports every problem of the schema at once.
func (s *Schema) Validate() (err error) {
	names := make(map[string]struct{}, len(s.Measurements))
	for i, m := range s.Measurements {
		if m.Name == "" {
			err = multierr.Append(err, fmt.Errorf("measurement #%d has no name", i))
			continue
		}
		if _, ok := names[m.Name]; ok {
			err = multierr.Append(err, fmt.Errorf("measurement %q is defined twice", m.Name))
		}
		names[m.Name] = struct{}{}
		err = multierr.Append(err, m.validate())
	}
	return err
}

func (m Measurement) validate() (err error) {
	keys := make(map[string]struct{}, len(m.Tags)+len(m.Fields))
	for _, t := range m.Tags {
		if t.Key == "" {
			err = multierr.Append(err, fmt.Errorf("measurement %q has a tag without key", m.Name))
			continue
		}
		if _, ok := keys[t.Key]; ok {
			err = multierr.Append(err, fmt.Errorf("measurement %q: duplicated key %q", m.Name, t.Key))
		}
		keys[t.Key] = struct{}{}
	}
	for _, f := range m.Fields {
		if f.Key == "" {
			err = multierr.Append(err, fmt.Errorf("measurement %q has a field without key", m.Name))
			continue
		}
		if _, ok := keys[f.Key]; ok {
			err = multierr.Append(err, fmt.Errorf("measurement %q: duplicated key %q", m.Name, f.Key))
		}
		keys[f.Key] = struct{}{}
		switch f.Type {
		case FieldFloat, FieldInteger, FieldString, FieldBoolean:
		default:
			err = multierr.Append(err, fmt.Errorf("measurement %q: field %q has unknown type %q", m.Name, f.Key, f.Type))
		}
	}
	return err
}

// index is the sorted, read-only view of a Schema.
type index struct {
	measurements map[string]*measurementIndex
	names        []string
}

type measurementIndex struct {
	tagValues map[string][]string
	tagKeys   []string
	fields    []Field
}

func newIndex(s *Schema) *index {
	idx := &index{measurements: make(map[string]*measurementIndex, len(s.Measurements))}
	for _, m := range s.Measurements {
		mi := &measurementIndex{tagValues: make(map[string][]string, len(m.Tags))}
		for _, t := range m.Tags {
			mi.tagKeys = append(mi.tagKeys, t.Key)
			values := append([]string(nil), t.Values...)
			sort.Strings(values)
			mi.tagValues[t.Key] = values
		}
		sort.Strings(mi.tagKeys)
		mi.fields = append(mi.fields, m.Fields...)
		sort.Slice(mi.fields, func(i, j int) bool { return mi.fields[i].Key < mi.fields[j].Key })
		idx.measurements[m.Name] = mi
		idx.names = append(idx.names, m.Name)
	}
	sort.Strings(idx.names)
	return idx
}
