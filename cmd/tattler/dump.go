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

package main

import (
	"context"
	"flag"
	"os"

	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/app"
	"github.com/tessapower/tattler/core/log"
)

type dumpVerb struct {
	Events bool
}

func init() {
	app.AddVerb(&app.Verb{
		Name:       "dump",
		ShortHelp:  "Print a summary of a capture file",
		ShortUsage: "<capture file>",
		Action:     &dumpVerb{},
	})
}

func (verb *dumpVerb) Bind(flags *flag.FlagSet) {
	flags.BoolVar(&verb.Events, "events", false, "List every event")
}

func (verb *dumpVerb) Run(ctx context.Context, flags *flag.FlagSet) error {
	if flags.NArg() != 1 {
		return app.Usage("Exactly one capture file expected, got %d", flags.NArg())
	}
	s, err := capture.ReadFile(flags.Arg(0))
	if err != nil {
		return log.Errf(ctx, err, "Reading %s", flags.Arg(0))
	}
	writeSummary(os.Stdout, s, verb.Events)
	return nil
}
