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

// ifds runs the taint-tracking problems named in an analysis configuration
// against an application graph and writes a vulnerability report.
//
// Usage:
//
//	ifds -a config.json -s "com.example.;com.other." [-l db.sqlite] [-o report.json] [-cp path1:path2]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awslabs/ifds-dataflow-engine/analysis/config"
	"github.com/awslabs/ifds-dataflow-engine/analysis/ifds"
	"github.com/awslabs/ifds-dataflow-engine/analysis/report"
	"github.com/awslabs/ifds-dataflow-engine/analysis/store"
	"github.com/awslabs/ifds-dataflow-engine/analysis/taint"
	"github.com/awslabs/ifds-dataflow-engine/internal/appgraph"
	"github.com/awslabs/ifds-dataflow-engine/internal/formatutil"
	"github.com/awslabs/ifds-dataflow-engine/internal/graphutil"
	"github.com/awslabs/ifds-dataflow-engine/internal/telemetry"
)

const usage = `ifds: interprocedural taint analysis over a pre-built application graph.
Usage:
    ifds -a <analysisConf> -s <start-prefixes> [-l <dbLocation>] [-o <output>] [-cp <classpath>]
`

func main() {
	os.Exit(run(os.Args[1:]))
}

type flags struct {
	analysisConf string
	dbLocation   string
	start        string
	output       string
	classpath    string
}

func parseFlags(args []string) (flags, error) {
	fs := flag.NewFlagSet("ifds", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}

	var f flags
	for _, name := range []string{"a", "analysisConf"} {
		fs.StringVar(&f.analysisConf, name, "", "semicolon-separated taint analysis configuration file(s), merged in order (required)")
	}
	for _, name := range []string{"l", "dbLocation"} {
		fs.StringVar(&f.dbLocation, name, "", "path to a SQLite database for persistent summary storage (optional; in-memory if unset)")
	}
	for _, name := range []string{"s", "start"} {
		fs.StringVar(&f.start, name, "", "semicolon-separated class-name prefixes to seed the analysis from (required)")
	}
	for _, name := range []string{"o", "output"} {
		fs.StringVar(&f.output, name, "report.json", "path to write the report to (.sarif extension writes SARIF)")
	}
	for _, name := range []string{"cp", "classpath"} {
		fs.StringVar(&f.classpath, name, os.Getenv("IFDS_CLASSPATH"), "path-separator-delimited list of application-graph documents")
	}

	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	if f.analysisConf == "" {
		return flags{}, fmt.Errorf("-a/--analysisConf is required")
	}
	if f.start == "" {
		return flags{}, fmt.Errorf("-s/--start is required")
	}
	if f.classpath == "" {
		return flags{}, fmt.Errorf("-cp/--classpath is required (or set IFDS_CLASSPATH)")
	}
	return f, nil
}

func run(args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	cfg, err := loadConfigs(strings.Split(f.analysisConf, ";"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	log := telemetry.NewLogGroup(logLevelFromName(cfg.LogLevel))

	graph, err := appgraph.Load(splitClasspath(f.classpath))
	if err != nil {
		log.Errorf("loading application graph: %v", err)
		return 2
	}

	prefixes := strings.Split(f.start, ";")
	resolver := ifds.ResolverByName(cfg.UnitResolver)
	deadline := time.Duration(cfg.DeadlineSeconds) * time.Second

	dbPath := f.dbLocation
	if cfg.DBLocation != "" {
		dbPath = cfg.DBLocation
	}
	db, err := store.Open(dbPath)
	if err != nil {
		log.Errorf("opening db: %v", err)
		return 2
	}
	defer db.Close()

	if len(cfg.TaintTrackingProblems) == 0 {
		log.Warnf("no taint tracking problems configured; nothing to do")
	}

	var allFindings []report.Finding
	var runID string
	truncated := false

	for _, spec := range cfg.TaintTrackingProblems {
		log.Infof("running taint problem %s", spec.Name)
		analyzer := taint.New(graph, spec)
		mgr := ifds.NewManager(graph, analyzer, resolver, deadline)

		startPoints := startStatements(graph, prefixes)
		res, err := mgr.Run(context.Background(), startPoints)
		if err != nil {
			if _, ok := err.(*ifds.DeadlineExceededError); ok {
				log.Warnf("problem %s: %v", spec.Name, err)
				truncated = true
				continue
			}
			log.Errorf("problem %s aborted: %v", spec.Name, err)
			return 1
		}

		if cycleErr := checkUnitCycles(log, mgr, cfg.StrictUnitCycles); cycleErr != nil {
			log.Errorf("problem %s: %v", spec.Name, cycleErr)
			return 1
		}

		runID = res.RunID
		if err := persist(db, res); err != nil {
			log.Warnf("persisting results for %s: %v", spec.Name, err)
		}

		tg := ifds.NewTraceGraph(graph, resolver, mgr.Runners())
		allFindings = append(allFindings, report.FromResult(res, false, tg).Findings...)
	}

	rep := &report.Report{RunID: runID, Truncated: truncated, Findings: allFindings}

	if err := writeReport(rep, f.output); err != nil {
		log.Errorf("writing report: %v", err)
		return 1
	}

	severity := formatutil.Severity(len(rep.Findings), truncated)
	log.Infof("%s", severity(fmt.Sprintf("%d finding(s), truncated=%v", len(rep.Findings), truncated)))

	if truncated {
		return 1
	}
	return 0
}

// startStatements resolves the -s/--start class-name prefixes to entry
// statements by unwrapping the appgraph-backed Graph the CLI always
// constructs; a Graph from any other source has no name to search by.
func startStatements(graph ifds.Graph, prefixes []string) []ifds.Statement {
	unwrapper, ok := graph.(interface{ Unwrap() *appgraph.Graph })
	if !ok {
		return nil
	}
	g := unwrapper.Unwrap()

	var out []ifds.Statement
	for _, m := range g.Methods() {
		if matchesAnyPrefix(m.Class(), prefixes) || matchesAnyPrefix(m.Package(), prefixes) {
			out = append(out, g.EntryStatements(m)...)
		}
	}
	return out
}

func matchesAnyPrefix(s string, prefixes []string) bool {
	if s == "" {
		return false
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func splitClasspath(cp string) []string {
	return strings.Split(cp, string(os.PathListSeparator))
}

// loadConfigs loads each path in order and structurally merges it onto the
// running result, so a user can layer an override file (e.g. a stricter
// deadline or extra taint rules) on top of a shared base config instead of
// repeating it.
func loadConfigs(paths []string) (*config.Config, error) {
	merged := &config.Config{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		c, err := config.Load(p)
		if err != nil {
			return nil, err
		}
		merged = config.MergeConfig(merged, c)
	}
	return merged, nil
}

// checkUnitCycles runs the engine's unit-dependency cycle diagnostics
// (internal/graphutil) against the cross-unit calls the just-finished run
// observed. A cycle is ordinary - mutually recursive units simply keep
// exchanging summaries until both stop producing new ones - so by default
// this only logs a warning; strict rejects the run instead.
func checkUnitCycles(log *telemetry.LogGroup, mgr *ifds.Manager, strict bool) error {
	edges := mgr.UnitEdges()
	if len(edges) == 0 {
		return nil
	}

	ids := make(map[ifds.Unit]int64)
	labels := make(map[int64]string)
	byID := make(map[int64]ifds.Unit)
	var next int64
	unitID := func(u ifds.Unit) int64 {
		if id, ok := ids[u]; ok {
			return id
		}
		id := next
		next++
		ids[u] = id
		labels[id] = u.String()
		byID[id] = u
		return id
	}
	for u := range mgr.Runners() {
		unitID(u)
	}
	intEdges := make(map[int64]map[int64]bool, len(edges))
	for from, tos := range edges {
		fid := unitID(from)
		intEdges[fid] = make(map[int64]bool, len(tos))
		for to := range tos {
			intEdges[fid][unitID(to)] = true
		}
	}

	cycles := graphutil.FindAllElementaryCycles(graphutil.NewUnitGraph(labels, intEdges))
	if len(cycles) == 0 {
		return nil
	}

	var firstCycle []ifds.Unit
	for i, cycle := range cycles {
		names := make([]string, len(cycle))
		us := make([]ifds.Unit, len(cycle))
		for j, id := range cycle {
			names[j] = labels[id]
			us[j] = byID[id]
		}
		if i == 0 {
			firstCycle = us
		}
		log.Warnf("unit cycle detected: %s", strings.Join(names, " -> "))
	}

	if strict {
		return &ifds.UnitCycleError{Cycle: firstCycle}
	}
	return nil
}

func logLevelFromName(name string) telemetry.LogLevel {
	switch name {
	case "trace":
		return telemetry.TraceLevel
	case "debug":
		return telemetry.DebugLevel
	case "warn":
		return telemetry.WarnLevel
	case "error":
		return telemetry.ErrLevel
	default:
		return telemetry.InfoLevel
	}
}

func persist(db *store.DB, res *ifds.Result) error {
	if err := db.BeginRun(res.RunID, 0); err != nil {
		return err
	}
	for method, edges := range res.SummaryEdges {
		for _, e := range edges {
			if err := db.SaveSummaryEdge(res.RunID, method.ID(), e.From.String(), e.To.String()); err != nil {
				return err
			}
		}
	}
	for _, v := range res.Findings {
		if err := db.SaveFinding(res.RunID, v.Method.ID(), v.RuleID, v.CWE, v.Sink.String()); err != nil {
			return err
		}
	}
	return db.FinishRun(res.RunID, false)
}

func writeReport(rep *report.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".sarif") {
		return rep.WriteSARIF(f)
	}
	return rep.WriteJSON(f)
}
