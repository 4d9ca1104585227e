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

// Package task holds the goroutine, signal and retry helpers used by the
// capture loops.
package task

import (
	"context"
	"time"

	"github.com/tessapower/tattler/core/app/crash"
)

// Task is a unit of work run against a context.
type Task func(context.Context) error

// Retry calls f until it reports done, maxAttempts calls have been made or
// ctx is stopped, sleeping retryDelay between calls. A maxAttempts of zero or
// less retries without limit. The error of the last call is returned, or the
// stop reason if ctx stopped first.
func Retry(ctx context.Context, maxAttempts int, retryDelay time.Duration, f func(context.Context) (done bool, err error)) error {
	var timer *time.Timer
	for attempt := 1; ; attempt++ {
		done, err := f(ctx)
		if done || (maxAttempts > 0 && attempt >= maxAttempts) {
			return err
		}
		if timer == nil {
			timer = time.NewTimer(retryDelay)
			defer timer.Stop()
		} else {
			timer.Reset(retryDelay)
		}
		select {
		case <-ShouldStop(ctx):
			return StopReason(ctx)
		case <-timer.C:
		}
	}
}

// ShouldStop is closed when work for ctx should stop.
func ShouldStop(ctx context.Context) <-chan struct{} { return ctx.Done() }

// StopReason is the error ctx stopped with, or nil.
func StopReason(ctx context.Context) error { return ctx.Err() }

// Stopped reports whether ctx has stopped.
func Stopped(ctx context.Context) bool { return ctx.Err() != nil }

// Handle refers to a task started with Go. Its Signal fires when the task
// returns.
type Handle struct {
	Signal
	out *result
}

type result struct{ err error }

// Result waits for the task and returns its error. If ctx stops first the
// stop reason is returned instead.
func (h Handle) Result(ctx context.Context) error {
	if h.Wait(ctx) {
		return h.out.err
	}
	return StopReason(ctx)
}

// Go runs t on a new goroutine. Panics reach the crash reporters. A task
// whose context has already stopped is not run.
func Go(ctx context.Context, t Task) Handle {
	out := &result{}
	signal, fire := NewSignal()
	crash.Go(func() {
		defer fire(ctx)
		if out.err = StopReason(ctx); out.err == nil {
			out.err = t(ctx)
		}
	})
	return Handle{signal, out}
}
