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
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/app"
	"github.com/tessapower/tattler/core/fault"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/pipe"
	"github.com/tessapower/tattler/viewer/client"
)

const errNoCapture = fault.Const("No capture received")

type captureVerb struct {
	Pipe           string
	Out            string
	Duration       time.Duration
	ConnectTimeout time.Duration
	ReceiveTimeout time.Duration
}

func init() {
	app.AddVerb(&app.Verb{
		Name:       "capture",
		ShortHelp:  "Record a capture session from a hooked application",
		ShortUsage: "[-duration d] [-out file]",
		Action:     &captureVerb{},
	})
}

func (verb *captureVerb) Bind(flags *flag.FlagSet) {
	flags.StringVar(&verb.Pipe, "pipe", pipe.DefaultName, "Name of the channel the hook connects to")
	flags.StringVar(&verb.Out, "out", "", "Capture file to write (default capture-<session>.ttlr)")
	flags.DurationVar(&verb.Duration, "duration", 0, "How long to capture for, 0 to capture until interrupted")
	flags.DurationVar(&verb.ConnectTimeout, "connect-timeout", 0, "How long to wait for the hook, 0 to wait forever")
	flags.DurationVar(&verb.ReceiveTimeout, "receive-timeout", 30*time.Second, "How long to wait for the capture after stopping")
}

func (verb *captureVerb) Run(ctx context.Context, flags *flag.FlagSet) error {
	if flags.NArg() != 0 {
		return app.Usage("capture takes no arguments, got %d", flags.NArg())
	}
	session := uuid.New()
	ctx = log.V{"session": session}.Bind(ctx)
	out := verb.Out
	if out == "" {
		out = fmt.Sprintf("capture-%s.ttlr", session)
	}

	// The session must outlive an interrupt so the capture can still be
	// stopped and received.
	sessionCtx := context.WithoutCancel(ctx)
	viewer, err := client.Listen(sessionCtx, verb.Pipe)
	if err != nil {
		return err
	}
	defer viewer.Stop(sessionCtx)

	log.I(ctx, "Waiting for hook on %s", pipe.Address(verb.Pipe))
	waitCtx := ctx
	if verb.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, verb.ConnectTimeout)
		defer cancel()
	}
	if !viewer.WaitForConnection(waitCtx) {
		return log.Err(ctx, waitCtx.Err(), "No hook connected")
	}
	if err := viewer.SendStartCapture(ctx); err != nil {
		return err
	}
	started := time.Now()
	if verb.Duration > 0 {
		log.I(ctx, "Capturing for %v", verb.Duration)
	} else {
		log.I(ctx, "Capturing until interrupted")
	}
	var wait <-chan time.Time
	if verb.Duration > 0 {
		wait = time.After(verb.Duration)
	}
	select {
	case <-wait:
	case <-ctx.Done():
	}

	if err := viewer.SendStopCapture(sessionCtx); err != nil {
		return err
	}
	var s capture.Snapshot
	select {
	case got, ok := <-viewer.Snapshots():
		if !ok {
			return log.Err(ctx, client.ErrNotConnected, "Channel closed before the capture arrived")
		}
		s = got
	case <-time.After(verb.ReceiveTimeout):
		return log.Errf(ctx, errNoCapture, "Waited %v", verb.ReceiveTimeout)
	}
	log.I(ctx, "Captured %s events over %v", humanize.Comma(int64(s.EventCount())), time.Since(started).Round(time.Millisecond))

	if err := capture.WriteFile(out, &s); err != nil {
		return log.Errf(ctx, err, "Writing %s", out)
	}
	if fi, err := os.Stat(out); err == nil {
		log.I(ctx, "Wrote %s (%s)", out, humanize.Bytes(uint64(fi.Size())))
	}
	writeSummary(os.Stdout, &s, false)
	return nil
}
