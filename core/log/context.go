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

package log

import (
	"context"
	"time"
)

type key int

const (
	handlerKey key = iota
	filterKey
	clockKey
	tagKey
	traceKey
	valuesKey
)

// PutHandler returns a new context with the Handler h.
func PutHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey, h)
}

// Filter decides which severities reach the handler.
type Filter interface {
	ShowSeverity(s Severity) bool
}

// PutFilter returns a new context with the Filter f.
func PutFilter(ctx context.Context, f Filter) context.Context {
	return context.WithValue(ctx, filterKey, f)
}

// SeverityFilter shows messages at or above its severity.
type SeverityFilter Severity

// ShowSeverity returns true if s is at least f.
func (f SeverityFilter) ShowSeverity(s Severity) bool { return Severity(f) <= s }

// Clock tells message time.
type Clock interface {
	Time() time.Time
}

// PutClock returns a new context with the Clock c.
func PutClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, clockKey, c)
}

// FixedClock always tells the same time.
type FixedClock time.Time

// Time returns the fixed time.
func (c FixedClock) Time() time.Time { return time.Time(c) }

// PutTag returns a new context with the tag.
func PutTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, tagKey, tag)
}

type trace struct {
	name   string
	parent *trace
}

// Enter returns a new context with name pushed onto the trace.
func Enter(ctx context.Context, name string) context.Context {
	parent, _ := ctx.Value(traceKey).(*trace)
	return context.WithValue(ctx, traceKey, &trace{name, parent})
}

func traceOf(ctx context.Context) []string {
	var out []string
	for t, _ := ctx.Value(traceKey).(*trace); t != nil; t = t.parent {
		out = append([]string{t.name}, out...)
	}
	return out
}

// V is a set of named values to attach to every message logged under a
// context. Inner bindings shadow outer ones of the same name.
type V map[string]interface{}

type bound struct {
	v      V
	parent *bound
}

// Bind returns a new context carrying v.
func (v V) Bind(ctx context.Context) context.Context {
	parent, _ := ctx.Value(valuesKey).(*bound)
	return context.WithValue(ctx, valuesKey, &bound{v, parent})
}
