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

// Package telemetry provides leveled logging for the CLI; the solver and
// the unit manager do not log.
package telemetry

import (
	"io"
	"log"
)

// LogLevel gates which of a LogGroup's writers are active.
type LogLevel int

const (
	// ErrLevel is the minimum level: only hard errors are logged.
	ErrLevel LogLevel = iota + 1
	// WarnLevel additionally logs recoverable problems (a deadline-truncated
	// taint problem, a detected unit cycle, a failure to persist results).
	WarnLevel
	// InfoLevel additionally logs high-level progress: which taint problem
	// is running and the final finding count.
	InfoLevel
	// DebugLevel additionally enables Debugf output; the CLI issues none.
	DebugLevel
	// TraceLevel additionally enables Tracef output; the CLI issues none.
	TraceLevel
)

// LogGroup is five independent *log.Logger values gated by a shared
// level, so call sites can log at a fixed severity without checking the
// level themselves.
type LogGroup struct {
	level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogGroup returns a LogGroup at the given level, writing to the
// standard logger's default destination until SetOutput is called.
func NewLogGroup(level LogLevel) *LogGroup {
	w, flags := log.Writer(), log.Flags()
	return &LogGroup{
		level: level,
		trace: log.New(w, "[TRACE] ", flags),
		debug: log.New(w, "[DEBUG] ", flags),
		info:  log.New(w, "[INFO] ", flags),
		warn:  log.New(w, "[WARN] ", flags),
		err:   log.New(w, "[ERROR] ", flags),
	}
}

// SetOutput redirects every logger in the group to w.
func (l *LogGroup) SetOutput(w io.Writer) {
	l.trace.SetOutput(w)
	l.debug.SetOutput(w)
	l.info.SetOutput(w)
	l.warn.SetOutput(w)
	l.err.SetOutput(w)
}

// SetFlags sets the flag bits of every logger in the group.
func (l *LogGroup) SetFlags(flags int) {
	l.trace.SetFlags(flags)
	l.debug.SetFlags(flags)
	l.info.SetFlags(flags)
	l.warn.SetFlags(flags)
	l.err.SetFlags(flags)
}

// Tracef logs at TraceLevel.
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

// Debugf logs at DebugLevel.
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

// Infof logs at InfoLevel.
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

// Warnf logs at WarnLevel.
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

// Errorf logs at ErrLevel.
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}
