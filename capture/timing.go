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

package capture

import "time"

// TicksToDuration converts a GPU tick count at freq ticks per second to a duration.
// A zero frequency yields zero.
func TicksToDuration(ticks, freq uint64) time.Duration {
	if freq == 0 {
		return 0
	}
	sec := ticks / freq
	rem := ticks % freq
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/freq)
}

// GPUDuration returns how long the event ran on the GPU.
func (e Event) GPUDuration(freq uint64) time.Duration {
	return TicksToDuration(e.gpuTicks(), freq)
}

// gpuTicks is End-Begin, or zero when an unpatched slot left End below Begin.
func (e Event) gpuTicks() uint64 {
	if e.End < e.Begin {
		return 0
	}
	return e.End - e.Begin
}

// CPUDuration returns the wall clock time between the frame's start and end.
func (f Frame) CPUDuration() time.Duration {
	if f.CPUEndMicros < f.CPUStartMicros {
		return 0
	}
	return time.Duration(f.CPUEndMicros-f.CPUStartMicros) * time.Microsecond
}

// GPUSpan returns the first begin and last end tick of the frame's events.
// ok is false if the frame has no events.
func (f Frame) GPUSpan() (begin, end uint64, ok bool) {
	for i, e := range f.Events {
		if i == 0 || e.Begin < begin {
			begin = e.Begin
		}
		if i == 0 || e.End > end {
			end = e.End
		}
	}
	return begin, end, len(f.Events) > 0
}
