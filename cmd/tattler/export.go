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
	"strings"

	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/app"
	"github.com/tessapower/tattler/core/log"
)

type exportVerb struct {
	Out string
}

func init() {
	app.AddVerb(&app.Verb{
		Name:       "export",
		ShortHelp:  "Convert a capture file to a Chrome trace",
		ShortUsage: "[-out file] <capture file>",
		Action:     &exportVerb{},
	})
}

func (verb *exportVerb) Bind(flags *flag.FlagSet) {
	flags.StringVar(&verb.Out, "out", "", "Trace file to write (default <capture>.json)")
}

func (verb *exportVerb) Run(ctx context.Context, flags *flag.FlagSet) error {
	if flags.NArg() != 1 {
		return app.Usage("Exactly one capture file expected, got %d", flags.NArg())
	}
	in := flags.Arg(0)
	out := verb.Out
	if out == "" {
		out = strings.TrimSuffix(in, ".ttlr") + ".json"
	}
	s, err := capture.ReadFile(in)
	if err != nil {
		return log.Errf(ctx, err, "Reading %s", in)
	}
	f, err := os.Create(out)
	if err != nil {
		return log.Errf(ctx, err, "Creating %s", out)
	}
	if err := capture.WriteChromeTrace(f, s); err != nil {
		f.Close()
		return log.Errf(ctx, err, "Writing %s", out)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.I(ctx, "Wrote %d frames to %s", len(s.Frames), out)
	return nil
}
