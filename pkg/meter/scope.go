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

package meter

// NewHierarchicalScope returns a root Scope. Sub-scope namespaces are joined to
// the root name with sep.
func NewHierarchicalScope(name, sep string) Scope {
	return scope{namespace: name, sep: sep, labels: LabelPairs{}}
}

// scope is immutable: ConstLabels and SubScope derive new scopes, so a scope
// handed to a Provider never changes under it.
type scope struct {
	labels    LabelPairs
	namespace string
	sep       string
}

// ConstLabels returns a copy of s carrying labels on top of the inherited ones.
func (s scope) ConstLabels(labels LabelPairs) Scope {
	s.labels = s.labels.Merge(labels)
	return s
}

func (s scope) SubScope(name string) Scope {
	s.namespace += s.sep + name
	return s
}

func (s scope) GetNamespace() string {
	return s.namespace
}

// GetLabels returns a copy of the labels.
func (s scope) GetLabels() LabelPairs {
	return s.labels.Merge(nil)
}
