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

// Package crash reports panics that escape a goroutine before letting them
// take the process down.
package crash

import (
	"runtime/debug"
	"sync"
)

// Reporter is told about a panic value and the stack it was raised on.
type Reporter func(e interface{}, stack []byte)

var (
	mu        sync.Mutex
	reporters []Reporter
	reported  bool
)

// Register adds r to the reporters called on an uncaught panic.
func Register(r Reporter) {
	mu.Lock()
	reporters = append(reporters, r)
	mu.Unlock()
}

// Go runs f on a new goroutine. A panic in f is reported, then re-raised.
func Go(f func()) {
	go func() {
		defer func() {
			if e := recover(); e != nil {
				Crash(e)
			}
		}()
		f()
	}()
}

// Crash reports e to every reporter, then panics with e. Only the first
// crash of the process is reported.
func Crash(e interface{}) {
	stack := debug.Stack()
	mu.Lock()
	first := !reported
	reported = true
	list := reporters
	mu.Unlock()
	if first {
		for _, r := range list {
			r(e, stack)
		}
	}
	panic(e)
}
