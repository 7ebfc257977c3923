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

package run

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xhit/go-str2duration/v2"
)

// Bytes is a pflag.Value holding a size such as "64KiB" or "1MB".
type Bytes int64

// String renders the size with IEC units.
func (b *Bytes) String() string {
	return humanize.IBytes(uint64(*b))
}

// Set parses a human readable size.
func (b *Bytes) Set(s string) error {
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return err
	}
	*b = Bytes(size)
	return nil
}

// Type returns the type name of the Bytes custom type.
func (b *Bytes) Type() string {
	return "bytes"
}

// Duration is a pflag.Value accepting day and week units, for example "1d12h".
type Duration int64

// Value returns the parsed time.Duration.
func (d Duration) Value() time.Duration {
	return time.Duration(d)
}

// String renders the duration in the largest units.
func (d *Duration) String() string {
	return str2duration.String(d.Value())
}

// Set parses a duration.
func (d *Duration) Set(s string) error {
	v, err := str2duration.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Type returns the type name of the Duration custom type.
func (d *Duration) Type() string {
	return "duration"
}
