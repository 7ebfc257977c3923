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

package influxql

// convertList converts the elements of a separated list in order and stops at
// the first error. The result is never nil.
func convertList[G, T any](items []*G, convert func(*G) (T, error)) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := convert(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// flatten collects the leaves of a conjunction whose terms are either a leaf
// or a parenthesized group of further terms. Leaves keep their source order.
func flatten[G, L any](terms []*G, expand func(*G) ([]*G, *L)) []*L {
	out := make([]*L, 0, len(terms))
	for _, term := range terms {
		group, leaf := expand(term)
		if leaf != nil {
			out = append(out, leaf)
			continue
		}
		out = append(out, flatten(group, expand)...)
	}
	return out
}
