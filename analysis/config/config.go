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

// Package config loads and compiles the JSON analysis configuration: the
// sources, sinks, sanitizers and pass-through rules a taint Analyzer
// matches against call sites, plus the engine-level options (unit
// resolver strategy, deadline, log level, database location) the CLI
// reads from it. A dbLocation set in a config file overrides the CLI's
// -l flag.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Matcher identifies a code element - a source, sink, sanitizer or
// pass-through function - by package, receiver type, method name and
// (for sources/sinks that only taint one argument) a zero-based parameter
// position. Empty string fields and a nil Position match anything, so a
// rule can be as narrow or as broad as the user needs.
type Matcher struct {
	Package  string `json:"package,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Method   string `json:"method,omitempty"`
	// Position is the zero-based argument index this rule applies to; nil
	// means every position (for a source: the call's result). A negative
	// Position never matches, so the receiver and the return value cannot
	// be selected by position.
	Position *int `json:"position,omitempty"`
	// Mark scopes this rule to one kind of tainted property, e.g. "TAINT"
	// or "NULLNESS". Empty matches a fact regardless of the marks it
	// carries; a sanitizer with a non-empty Mark only clears that mark,
	// leaving any other mark on the same access path untouched.
	Mark string `json:"mark,omitempty"`
	// CWE is the Common Weakness Enumeration id a sink rule reports on a
	// match (e.g. "CWE-89"). Unused by sources, sanitizers and
	// pass-through rules.
	CWE string `json:"cwe,omitempty"`

	compiled *compiledMatcher
}

type compiledMatcher struct {
	pkg, recv, method *regexpMatcher
}

// Compile compiles m's patterns into regexes, reporting the first
// compilation error encountered. A Matcher must be compiled before
// Matches is called; Load compiles every matcher it reads.
func (m Matcher) Compile() (Matcher, error) {
	pkg, err := newRegexpMatcher(m.Package)
	if err != nil {
		return m, fmt.Errorf("invalid package pattern %q: %w", m.Package, err)
	}
	recv, err := newRegexpMatcher(m.Receiver)
	if err != nil {
		return m, fmt.Errorf("invalid receiver pattern %q: %w", m.Receiver, err)
	}
	method, err := newRegexpMatcher(m.Method)
	if err != nil {
		return m, fmt.Errorf("invalid method pattern %q: %w", m.Method, err)
	}
	m.compiled = &compiledMatcher{pkg: pkg, recv: recv, method: method}
	return m, nil
}

// Matches reports whether m identifies the given call site. position is
// ignored when m.Position is nil.
func (m Matcher) Matches(pkg, receiver, method string, position int) bool {
	if m.Position != nil && *m.Position != position {
		return false
	}
	return m.MatchesCall(pkg, receiver, method)
}

// MatchesCall reports whether m's package/receiver/method patterns match,
// ignoring Position entirely - useful to ask "does any rule mention this
// call at all", independent of which argument it cares about.
func (m Matcher) MatchesCall(pkg, receiver, method string) bool {
	if m.compiled == nil {
		return false
	}
	return m.compiled.pkg.Match(pkg) && m.compiled.recv.Match(receiver) && m.compiled.method.Match(method)
}

// TaintSpec is one taint-tracking problem: the rule sets a Analyzer built
// from this config will test call sites against.
type TaintSpec struct {
	Name        string    `json:"name"`
	Sources     []Matcher `json:"sources,omitempty"`
	Sinks       []Matcher `json:"sinks,omitempty"`
	Sanitizers  []Matcher `json:"sanitizers,omitempty"`
	PassThrough []Matcher `json:"passThrough,omitempty"`
}

// Config is the root of the JSON configuration file.
type Config struct {
	// UnitResolver names the partitioning strategy ("singleton",
	// "per-package", "per-class", "per-method"); see ResolverByName.
	UnitResolver string `json:"unitResolver,omitempty"`
	// DeadlineSeconds bounds how long Manager.Run may take; 0 means no
	// deadline.
	DeadlineSeconds int `json:"deadlineSeconds,omitempty"`
	// LogLevel names the minimum severity logged ("error", "warn", "info",
	// "debug", "trace").
	LogLevel string `json:"logLevel,omitempty"`
	// DBLocation is the optional SQLite file backing persistent summary
	// storage across runs; empty means in-memory only.
	DBLocation string `json:"dbLocation,omitempty"`
	// StrictUnitCycles rejects a run where unit-dependency diagnostics find
	// a cycle among units, instead of the default behavior of letting
	// summaries propagate back and forth until both sides stop producing
	// new ones.
	StrictUnitCycles bool `json:"strictUnitCycles,omitempty"`

	TaintTrackingProblems []TaintSpec `json:"taintTrackingProblems,omitempty"`
}

// Load reads and compiles the config at path. An empty path returns a
// zero-value Config rather than an error, since the engine runs fine with
// no sources/sinks configured (useful for -dryrun style invocations).
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := c.compile(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) compile() error {
	for i, spec := range c.TaintTrackingProblems {
		compiled, err := compileSpec(spec)
		if err != nil {
			return fmt.Errorf("taint spec %q: %w", spec.Name, err)
		}
		c.TaintTrackingProblems[i] = compiled
	}
	return nil
}

func compileSpec(spec TaintSpec) (TaintSpec, error) {
	var err error
	if spec.Sources, err = compileAll(spec.Sources); err != nil {
		return spec, err
	}
	if spec.Sinks, err = compileAll(spec.Sinks); err != nil {
		return spec, err
	}
	if spec.Sanitizers, err = compileAll(spec.Sanitizers); err != nil {
		return spec, err
	}
	if spec.PassThrough, err = compileAll(spec.PassThrough); err != nil {
		return spec, err
	}
	return spec, nil
}

func compileAll(matchers []Matcher) ([]Matcher, error) {
	out := make([]Matcher, len(matchers))
	for i, m := range matchers {
		compiled, err := m.Compile()
		if err != nil {
			return nil, err
		}
		out[i] = compiled
	}
	return out, nil
}

// MergeConfig structurally merges override onto base: scalar fields in
// override that are non-zero replace base's, and TaintTrackingProblems
// concatenate rather than replace, so a user config can add rules on top
// of a set of defaults instead of having to restate them. This is a
// structural merge, not a textual one - it operates on the parsed Config
// values, so a user file only needs to mention the fields it actually
// wants to change.
func MergeConfig(base, override *Config) *Config {
	merged := *base
	if override.UnitResolver != "" {
		merged.UnitResolver = override.UnitResolver
	}
	if override.DeadlineSeconds != 0 {
		merged.DeadlineSeconds = override.DeadlineSeconds
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	if override.DBLocation != "" {
		merged.DBLocation = override.DBLocation
	}
	if override.StrictUnitCycles {
		merged.StrictUnitCycles = true
	}
	merged.TaintTrackingProblems = append(
		append([]TaintSpec(nil), base.TaintTrackingProblems...),
		override.TaintTrackingProblems...,
	)
	return &merged
}
