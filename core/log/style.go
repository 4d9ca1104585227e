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
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Style controls which parts of a Message are printed.
type Style struct {
	Name          string
	Timestamp     bool
	Tag           bool
	Trace         bool
	LongSeverity  bool // Print "Warning" rather than "W".
	Values        bool
	MultiLineVals bool // One value per line rather than a trailing (a: 1, b: 2).
}

var (
	// Brief prints the severity and text.
	Brief = Style{Name: "brief"}
	// Normal is the default style for the command line tools.
	Normal = Style{Name: "normal", Timestamp: true, Tag: true, Values: true}
	// Detailed prints everything a message carries.
	Detailed = Style{Name: "detailed", Timestamp: true, Tag: true, Trace: true, Values: true, LongSeverity: true, MultiLineVals: true}
)

func (s Style) String() string { return s.Name }

// Print formats msg as a single string.
func (s Style) Print(msg *Message) string {
	var b strings.Builder
	if s.Timestamp && !msg.Time.IsZero() {
		t := msg.Time
		fmt.Fprintf(&b, "%.2d:%.2d:%.2d.%.3d ", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
	}
	if s.LongSeverity {
		b.WriteString(msg.Severity.String())
	} else {
		b.WriteString(msg.Severity.Short())
	}
	b.WriteString(": ")
	if s.Trace && len(msg.Trace) > 0 {
		fmt.Fprintf(&b, "[%s] ", strings.Join(msg.Trace, " -> "))
	}
	if s.Tag && msg.Tag != "" {
		fmt.Fprintf(&b, "[%s] ", msg.Tag)
	}
	b.WriteString(msg.Text)
	if !s.Values || len(msg.Values) == 0 {
		return b.String()
	}
	if s.MultiLineVals {
		for _, v := range msg.Values {
			fmt.Fprintf(&b, "\n  %v: %v", v.Name, v.Value)
		}
		return b.String()
	}
	b.WriteString(" (")
	for i, v := range msg.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v: %v", v.Name, v.Value)
	}
	b.WriteString(")")
	return b.String()
}

// Writer receives formatted lines.
type Writer func(text string, severity Severity)

// Handler returns a Handler that prints messages in style s to w.
func (s Style) Handler(w Writer) Handler {
	return NewHandler(func(m *Message) { w(s.Print(m), m.Severity) }, nil)
}

// Std writes errors and fatals to stderr and everything else to stdout.
func Std() Writer {
	return func(text string, severity Severity) {
		out := os.Stdout
		if severity >= Error {
			out = os.Stderr
		}
		fmt.Fprintln(out, text)
	}
}

// File writes lines to w, serialising concurrent callers.
func File(w io.Writer) Writer {
	var mu sync.Mutex
	return func(text string, _ Severity) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, text)
	}
}
