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

// Package report renders an ifds.Result as JSON or SARIF, the two output
// formats the CLI's -o flag accepts.
package report

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/awslabs/ifds-dataflow-engine/analysis/ifds"
	"github.com/awslabs/ifds-dataflow-engine/internal/formatutil"
)

// Finding is one reported vulnerability, with its witness trace rendered
// to strings so the report carries no dependency on the host program's
// concrete Statement/Fact types.
type Finding struct {
	RuleID string        `json:"ruleId"`
	CWE    string        `json:"cwe,omitempty"`
	Method string        `json:"method"`
	Sink   string        `json:"sink"`
	Trace  *TraceSection `json:"trace,omitempty"`
}

// TraceSection is a Finding's reconstructed trace graph (§4.8): the
// vertices and edges the sink's derivation passes through, its entry
// points, and one flattened Path through them for consumers (SARIF code
// flows) that want a single concrete sequence rather than the full
// graph.
type TraceSection struct {
	Vertices []string    `json:"vertices"`
	Edges    []TraceEdge `json:"edges"`
	Entries  []string    `json:"entryPoints"`
	Path     []string    `json:"path,omitempty"`
}

// TraceEdge is one directed edge of a TraceSection.
type TraceEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// traceSectionFrom renders a Witness into a TraceSection, sanitizing and
// sorting every element for deterministic, injection-safe output.
func traceSectionFrom(w *ifds.Witness) *TraceSection {
	ts := &TraceSection{}

	for v := range w.Vertices {
		ts.Vertices = append(ts.Vertices, formatutil.SanitizeRepr(v))
	}
	sort.Strings(ts.Vertices)

	for e := range w.Edges {
		ts.Edges = append(ts.Edges, TraceEdge{
			From: formatutil.SanitizeRepr(e.From),
			To:   formatutil.SanitizeRepr(e.To),
		})
	}
	sort.Slice(ts.Edges, func(i, j int) bool {
		if ts.Edges[i].From != ts.Edges[j].From {
			return ts.Edges[i].From < ts.Edges[j].From
		}
		return ts.Edges[i].To < ts.Edges[j].To
	})

	for v := range w.Entries {
		ts.Entries = append(ts.Entries, formatutil.SanitizeRepr(v))
	}
	sort.Strings(ts.Entries)

	for _, v := range w.Linearize() {
		ts.Path = append(ts.Path, formatutil.SanitizeRepr(v))
	}
	return ts
}

// Report is the top-level document written to -o.
type Report struct {
	RunID     string    `json:"runId"`
	Truncated bool      `json:"truncated"`
	Findings  []Finding `json:"findings"`
}

// FromResult builds a Report from a completed analysis. tg may be nil, in
// which case findings are reported without a witness trace.
func FromResult(res *ifds.Result, truncated bool, tg *ifds.TraceGraph) *Report {
	r := &Report{RunID: res.RunID, Truncated: truncated}
	for _, v := range res.Findings {
		// Sink and trace text ultimately derives from identifiers in the
		// analyzed program; Sanitize keeps a maliciously-named identifier
		// from injecting escape sequences into a terminal or log that
		// renders the report.
		f := Finding{RuleID: v.RuleID, CWE: v.CWE, Method: v.Method.ID(), Sink: formatutil.Sanitize(v.Sink.String())}
		if tg != nil {
			if w, ok := tg.Reconstruct(v.Method, v.Sink); ok {
				f.Trace = traceSectionFrom(w)
			}
		}
		r.Findings = append(r.Findings, f)
	}
	sort.Slice(r.Findings, func(i, j int) bool {
		if r.Findings[i].Method != r.Findings[j].Method {
			return r.Findings[i].Method < r.Findings[j].Method
		}
		return r.Findings[i].Sink < r.Findings[j].Sink
	})
	return r
}

// WriteJSON writes r as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
