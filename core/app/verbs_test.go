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

package app_test

import (
	"context"
	"flag"
	"testing"

	"github.com/tessapower/tattler/core/app"
	"github.com/tessapower/tattler/core/assert"
	"github.com/tessapower/tattler/core/log"
)

type countVerb struct {
	runs  int
	limit int
	args  []string
}

func (v *countVerb) Bind(flags *flag.FlagSet) {
	flags.IntVar(&v.limit, "limit", 1, "limit")
}

func (v *countVerb) Run(ctx context.Context, flags *flag.FlagSet) error {
	v.runs++
	v.args = flags.Args()
	return nil
}

func TestInvoke(t *testing.T) {
	ctx := log.Testing(t)
	capture, export := &countVerb{}, &countVerb{}
	root := &app.Verb{Name: "tool"}
	root.Add(&app.Verb{Name: "capture", Action: capture})
	root.Add(&app.Verb{Name: "export", Action: export})

	err := root.Invoke(ctx, []string{"cap", "-limit", "3", "out.ttlr"})
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "runs").That(capture.runs).Equals(1)
	assert.For(ctx, "limit").That(capture.limit).Equals(3)
	assert.For(ctx, "args").ThatSlice(capture.args).Equals([]string{"out.ttlr"})
	assert.For(ctx, "other").That(export.runs).Equals(0)
}

func TestInvokeUsageErrors(t *testing.T) {
	ctx := log.Testing(t)
	root := &app.Verb{Name: "tool"}
	root.Add(&app.Verb{Name: "dump", Action: &countVerb{}})
	root.Add(&app.Verb{Name: "dumpall", Action: &countVerb{}})
	root.Add(&app.Verb{Name: "export", Action: &countVerb{}})

	for _, args := range [][]string{
		nil,
		{"unknown"},
		{"du"},
		{"export", "-nosuchflag"},
	} {
		err := root.Invoke(ctx, args)
		assert.For(ctx, "%v", args).That(app.IsUsage(err)).Equals(true)
	}
	assert.For(ctx, "exact match").ThatError(root.Invoke(ctx, []string{"dump"})).Succeeded()
}

func TestDuplicateVerbPanics(t *testing.T) {
	ctx := log.Testing(t)
	root := &app.Verb{Name: "tool"}
	root.Add(&app.Verb{Name: "dump", Action: &countVerb{}})
	defer func() {
		assert.For(ctx, "panic").That(recover()).IsNotNil()
	}()
	root.Add(&app.Verb{Name: "dump", Action: &countVerb{}})
}
