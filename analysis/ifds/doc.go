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

// Package ifds implements the interprocedural IFDS/IDE tabulation solver
// (Reps-Horwitz-Sagiv, extended following Naeem-Lhoták-Rodriguez for
// dynamically discovered supergraphs). The package only knows about an
// abstract application graph (see Graph) and an abstract domain of facts
// (see Fact); callers instantiate it with a concrete Analyzer to perform a
// specific analysis, such as the taint analyses in the sibling taint
// package.
package ifds
