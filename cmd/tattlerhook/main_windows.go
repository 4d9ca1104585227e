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

//go:build windows && cgo

// The tattlerhook command builds the hook DLL that is loaded into the traced
// application:
//
//	go build -buildmode=c-shared -o tattler.dll ./cmd/tattlerhook
//
// Loading the DLL installs the hooks and connects to the viewer.
package main

import "C"

import (
	"context"

	"github.com/tessapower/tattler/core/event/task"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook"
	"github.com/tessapower/tattler/hook/d3d12"
)

var (
	stop context.CancelFunc = func() {}
	done                    = task.FiredSignal
)

func init() {
	start(context.Background())
}

func start(ctx context.Context) {
	cfg, cfgErr := hook.ConfigFromEnv()
	if cfgErr != nil {
		cfg = hook.DefaultConfig()
	}
	ctx, closeLog, err := cfg.Logging(ctx)
	if err != nil {
		return
	}
	if cfgErr != nil {
		log.W(ctx, "Using default config: %v", cfgErr)
	}

	c := hook.NewController()
	t := hook.NewTracer(c, cfg.MaxEventsPerFrame)
	if err := d3d12.Install(ctx, t); err != nil {
		log.E(ctx, "Installing hooks: %v", err)
		d3d12.Uninstall(ctx)
		closeLog()
		return
	}
	log.I(ctx, "Hooks installed, connecting to %s", cfg.Pipe)

	ctx, stop = context.WithCancel(ctx)
	done = task.Go(ctx, func(ctx context.Context) error {
		defer closeLog()
		err := c.Serve(ctx, cfg.Pipe, cfg.ConnectTimeout)
		log.I(ctx, "Session ended: %v", err)
		// Handlers may still hold the tracer, so its GPU objects are left
		// to the device.
		if err := d3d12.Uninstall(context.WithoutCancel(ctx)); err != nil {
			log.E(ctx, "%v", err)
		}
		return err
	}).Signal
}

// TattlerDetach ends the session and removes the hooks. It blocks until the
// hook has shut down.
//
//export TattlerDetach
func TattlerDetach() {
	stop()
	done.Wait(context.Background())
}

func main() {}
