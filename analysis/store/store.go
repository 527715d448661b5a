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

// Package store persists summary edges and findings across analysis
// runs in a SQLite database, backing the CLI's -l/--dbLocation flag. The
// CLI only writes to it; SummaryEdgesFor reads stored summaries back, but
// no analysis run seeds itself from them, so every run re-derives its
// summaries.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	truncated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS summary_edges (
	run_id TEXT NOT NULL REFERENCES runs(id),
	method_id TEXT NOT NULL,
	from_vertex TEXT NOT NULL,
	to_vertex TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS summary_edges_method_idx ON summary_edges(method_id);

CREATE TABLE IF NOT EXISTS findings (
	run_id TEXT NOT NULL REFERENCES runs(id),
	method_id TEXT NOT NULL,
	rule_id TEXT NOT NULL,
	cwe TEXT,
	sink TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS findings_method_idx ON findings(method_id);
`

// DB is a handle to the persistent store. A zero-value DB (returned by
// Open with an empty path) is a no-op: every method returns immediately
// without touching disk, so callers do not need to special-case
// "no -l flag given".
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the SQLite database at path. An empty
// path returns a usable no-op DB.
func Open(path string) (*DB, error) {
	if path == "" {
		return &DB{}, nil
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection, if any.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// BeginRun records the start of a new analysis run, keyed by runID.
func (db *DB) BeginRun(runID string, startedAtUnix int64) error {
	if db.conn == nil {
		return nil
	}
	_, err := db.conn.Exec(`INSERT INTO runs (id, started_at, truncated) VALUES (?, ?, 0)`, runID, startedAtUnix)
	return err
}

// FinishRun marks runID as complete, recording whether it was truncated
// by a deadline.
func (db *DB) FinishRun(runID string, truncated bool) error {
	if db.conn == nil {
		return nil
	}
	_, err := db.conn.Exec(`UPDATE runs SET truncated = ? WHERE id = ?`, boolToInt(truncated), runID)
	return err
}

// SaveSummaryEdge records one summary edge discovered for methodID during
// runID.
func (db *DB) SaveSummaryEdge(runID, methodID, from, to string) error {
	if db.conn == nil {
		return nil
	}
	_, err := db.conn.Exec(
		`INSERT INTO summary_edges (run_id, method_id, from_vertex, to_vertex) VALUES (?, ?, ?, ?)`,
		runID, methodID, from, to,
	)
	return err
}

// SaveFinding records one vulnerability found during runID.
func (db *DB) SaveFinding(runID, methodID, ruleID, cwe, sink string) error {
	if db.conn == nil {
		return nil
	}
	_, err := db.conn.Exec(
		`INSERT INTO findings (run_id, method_id, rule_id, cwe, sink) VALUES (?, ?, ?, ?, ?)`,
		runID, methodID, ruleID, cwe, sink,
	)
	return err
}

// SummaryEdge is one persisted summary edge, as plain strings - the store
// has no dependency on ifds.Edge, so it can be used standalone.
type SummaryEdge struct {
	From string
	To   string
}

// SummaryEdgesFor returns every summary edge ever recorded for methodID,
// across all runs, most recent first.
func (db *DB) SummaryEdgesFor(methodID string) ([]SummaryEdge, error) {
	if db.conn == nil {
		return nil, nil
	}
	rows, err := db.conn.Query(
		`SELECT from_vertex, to_vertex FROM summary_edges
		 WHERE method_id = ?
		 ORDER BY rowid DESC`,
		methodID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SummaryEdge
	for rows.Next() {
		var e SummaryEdge
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
