// Copyright (C) 2026 The Tattler Authors.
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

// Package log provides context-carried structured logging.
//
// Everything a message needs, from the handler to the trace of Enter names,
// lives on the context.Context, so callers only ever pass the context:
//
//	ctx = log.Enter(ctx, "Controller")
//	log.I(ctx, "Capture started")
package log

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Message is a single log record.
type Message struct {
	Text        string
	Time        time.Time
	Severity    Severity
	StopProcess bool     // The process should stop after this message.
	Tag         string   // The tag set with PutTag.
	Trace       []string // The Enter names, outermost first.
	Values      Values   // Bound values, sorted by name.
}

// Value is a named value bound with V.Bind.
type Value struct {
	Name  string
	Value interface{}
}

// Values sorts by name.
type Values []*Value

func (v Values) Len() int           { return len(v) }
func (v Values) Less(i, j int) bool { return v[i].Name < v[j].Name }
func (v Values) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }

// Logger is a snapshot of the logging state of a context.
type Logger struct {
	ctx     context.Context
	handler Handler
	filter  Filter
}

// From returns a new Logger for ctx.
func From(ctx context.Context) *Logger {
	h, _ := ctx.Value(handlerKey).(Handler)
	f, _ := ctx.Value(filterKey).(Filter)
	return &Logger{ctx, h, f}
}

// D logs a debug message.
func D(ctx context.Context, fmt string, args ...interface{}) {
	From(ctx).Logf(Debug, false, fmt, args...)
}

// I logs an info message.
func I(ctx context.Context, fmt string, args ...interface{}) {
	From(ctx).Logf(Info, false, fmt, args...)
}

// W logs a warning message.
func W(ctx context.Context, fmt string, args ...interface{}) {
	From(ctx).Logf(Warning, false, fmt, args...)
}

// E logs an error message.
func E(ctx context.Context, fmt string, args ...interface{}) {
	From(ctx).Logf(Error, false, fmt, args...)
}

// F logs a fatal message. stopProcess marks the message as one after which
// the process should stop.
func F(ctx context.Context, stopProcess bool, fmt string, args ...interface{}) {
	From(ctx).Logf(Fatal, stopProcess, fmt, args...)
}

// Logf sends a printf-style message at severity s to the handler, if there
// is one and the filter lets s through.
func (l *Logger) Logf(s Severity, stopProcess bool, format string, args ...interface{}) {
	if l.handler == nil || (l.filter != nil && !l.filter.ShowSeverity(s)) {
		return
	}
	l.handler.Handle(l.Message(s, stopProcess, fmt.Sprintf(format, args...)))
}

// Message builds a Message carrying the context's tag, trace and values.
func (l *Logger) Message(s Severity, stopProcess bool, text string) *Message {
	now := time.Now()
	if c, ok := l.ctx.Value(clockKey).(Clock); ok {
		now = c.Time()
	}
	tag, _ := l.ctx.Value(tagKey).(string)
	m := &Message{
		Text:        text,
		Time:        now,
		Severity:    s,
		StopProcess: stopProcess,
		Tag:         tag,
		Trace:       traceOf(l.ctx),
	}
	seen := map[string]bool{}
	for n, _ := l.ctx.Value(valuesKey).(*bound); n != nil; n = n.parent {
		for name, value := range n.v {
			if !seen[name] {
				seen[name] = true
				m.Values = append(m.Values, &Value{name, value})
			}
		}
	}
	sort.Sort(m.Values)
	return m
}
