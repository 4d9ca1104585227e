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

package task

import (
	"context"
	"sync"
	"time"
)

// Signal reports that something has happened. It carries no values; a
// signal fires by being closed.
type Signal <-chan struct{}

// FiredSignal has already fired.
var FiredSignal = func() Signal {
	c := make(chan struct{})
	close(c)
	return c
}()

// NewSignal returns an unfired signal and the task that fires it. Only the
// first run of the task has any effect.
func NewSignal() (Signal, Task) {
	c := make(chan struct{})
	var once sync.Once
	fire := func(context.Context) error {
		once.Do(func() { close(c) })
		return nil
	}
	return c, fire
}

// Fired reports whether s has fired, without blocking.
func (s Signal) Fired() bool {
	select {
	case <-s:
		return true
	default:
	}
	return false
}

// Wait blocks until s fires or ctx is stopped, and reports which happened.
func (s Signal) Wait(ctx context.Context) bool {
	select {
	case <-ShouldStop(ctx):
		return s.Fired()
	case <-s:
		return true
	}
}

// TryWait is Wait with an additional timeout.
func (s Signal) TryWait(ctx context.Context, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ShouldStop(ctx):
		return s.Fired()
	case <-t.C:
		return s.Fired()
	case <-s:
		return true
	}
}
