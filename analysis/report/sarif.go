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

package report

import (
	"encoding/json"
	"io"
)

// sarifLog is the small subset of the SARIF 2.1.0 schema this engine
// populates: one run, one tool, one result per Finding with a single
// code-flow thread built from the witness trace.
type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Tags sarifRuleProps  `json:"properties,omitempty"`
}

type sarifRuleProps struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID    string            `json:"ruleId"`
	Message   sarifMessage      `json:"message"`
	Locations []sarifLocation   `json:"locations"`
	CodeFlows []sarifCodeFlow   `json:"codeFlows,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	Message sarifMessage `json:"message"`
}

type sarifCodeFlow struct {
	ThreadFlows []sarifThreadFlow `json:"threadFlows"`
}

type sarifThreadFlow struct {
	Locations []sarifLocation `json:"locations"`
}

// WriteSARIF writes r as a SARIF 2.1.0 log with one run.
func (r *Report) WriteSARIF(w io.Writer) error {
	ruleSeen := make(map[string]bool)
	var rules []sarifRule
	var results []sarifResult

	for _, f := range r.Findings {
		if !ruleSeen[f.RuleID] {
			ruleSeen[f.RuleID] = true
			var props sarifRuleProps
			if f.CWE != "" {
				props.Tags = []string{f.CWE}
			}
			rules = append(rules, sarifRule{ID: f.RuleID, Name: f.RuleID, Tags: props})
		}

		res := sarifResult{
			RuleID:  f.RuleID,
			Message: sarifMessage{Text: "tainted value reaches " + f.Sink + " in " + f.Method},
			Locations: []sarifLocation{
				{Message: sarifMessage{Text: f.Sink}},
			},
		}
		if f.Trace != nil && len(f.Trace.Path) > 0 {
			var locs []sarifLocation
			for _, step := range f.Trace.Path {
				locs = append(locs, sarifLocation{Message: sarifMessage{Text: step}})
			}
			res.CodeFlows = []sarifCodeFlow{{ThreadFlows: []sarifThreadFlow{{Locations: locs}}}}
		}
		results = append(results, res)
	}

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "ifds-dataflow-engine", Rules: rules}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}
