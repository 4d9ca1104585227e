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

// Package assert is a fluent assertion library for tests.
//
//	ctx := log.Testing(t)
//	assert.For(ctx, "frames").ThatSlice(snapshot.Frames).IsLength(1)
//
// Every check returns whether it passed, so a test can stop early when a
// later check depends on an earlier one.
package assert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/go-cmp/cmp"
	"github.com/tessapower/tattler/core/log"
)

// Output matches the logging methods of the test host types.
type Output interface {
	Fatal(...interface{})
	Error(...interface{})
	Log(...interface{})
}

// Assertion is one named check. It reports to its output only on failure.
type Assertion struct {
	to    Output
	title string
	fatal bool
}

// For starts a new assertion with the supplied title. t may be a
// context.Context carrying a log handler, an Output, or nil to print to
// stdout.
func For(t interface{}, msg string, args ...interface{}) *Assertion {
	return &Assertion{to: outputFor(t), title: fmt.Sprintf(msg, args...)}
}

func outputFor(t interface{}) Output {
	switch t := t.(type) {
	case nil:
		return stdOutput{}
	case context.Context:
		return ctxOutput{t}
	case Output:
		return t
	}
	panic(fmt.Errorf("Unsupported assertion target type %T", t))
}

// Critical makes a failure of this assertion stop the test.
func (a *Assertion) Critical() *Assertion {
	a.fatal = true
	return a
}

type row struct{ label, text string }

// check reports a failure with a Got and Expect row unless ok.
func (a *Assertion) check(ok bool, got interface{}, op string, expect interface{}) bool {
	if !ok {
		a.fail(row{"Got", pretty(got)}, row{"Expect", op + "\t" + pretty(expect)})
	}
	return ok
}

func (a *Assertion) fail(rows ...row) {
	buf := &bytes.Buffer{}
	tabs := tabwriter.NewWriter(buf, 1, 4, 1, ' ', 0)
	fmt.Fprint(tabs, a.title)
	for _, r := range rows {
		fmt.Fprintf(tabs, "\n    %s\t%s", r.label, r.text)
	}
	tabs.Flush()
	msg := strings.TrimRight(buf.String(), " \n")
	if a.fatal {
		a.to.Fatal("Critical:" + msg)
		return
	}
	a.to.Error("Error:" + msg)
}

// pretty quotes strings and errors so empty values stay visible.
func pretty(v interface{}) string {
	switch v := v.(type) {
	case error:
		return "`" + v.Error() + "`"
	case string:
		return "`" + v + "`"
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%+v", v)
}

func (a *Assertion) deepDiff(got, expect interface{}) bool {
	diff := cmp.Diff(expect, got)
	if diff == "" {
		return true
	}
	a.fail(row{"Diff", "(-expect +got)\n" + diff})
	return false
}

type ctxOutput struct{ ctx context.Context }

func (o ctxOutput) Fatal(args ...interface{}) { log.F(o.ctx, true, "%s", fmt.Sprint(args...)) }
func (o ctxOutput) Error(args ...interface{}) { log.E(o.ctx, "%s", fmt.Sprint(args...)) }
func (o ctxOutput) Log(args ...interface{})   { log.I(o.ctx, "%s", fmt.Sprint(args...)) }

type stdOutput struct{}

func (stdOutput) Fatal(args ...interface{}) {
	fmt.Fprintln(os.Stdout, args...)
	panic("Fatal assertion without a test context")
}
func (stdOutput) Error(args ...interface{}) { fmt.Fprintln(os.Stdout, args...) }
func (stdOutput) Log(args ...interface{})   { fmt.Fprintln(os.Stdout, args...) }
