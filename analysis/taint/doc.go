// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package taint implements a taint-tracking ifds.Analyzer: sources,
// sinks, sanitizers and pass-through rules configured in a
// config.TaintSpec are matched against call sites in the application
// graph, and an access-path Fact is propagated from each source to find
// reachable sinks.
//
// The package does not know the host language's instruction set; it asks
// a Statement or Method to additionally implement one of the narrow
// interfaces in ops.go (CallOp, AssignOp, ReturnOp, FieldOp,
// Parameterized) to participate in taint flow. A Statement implementing
// none of them is treated as an opaque no-op that passes every fact
// through unchanged.
package taint
