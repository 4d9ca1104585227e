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

// Package capture holds the in-memory form of a capture session together with
// its flat binary encoding, on-disk file format and trace export.
package capture

// Event is a single intercepted GPU command.
//
// Begin and End hold timestamp slot indices while the event sits in the event
// buffer and raw GPU ticks once the frame has been finalized. Only finalized
// events are ever serialized.
type Event struct {
	FrameIndex    uint32
	EventIndex    uint32
	Begin         uint64
	End           uint64
	CommandList   uint64
	PipelineState uint64
	RenderTarget  uint64
	Params        Params
}

// Kind returns the kind tag implied by the event's parameters.
func (e Event) Kind() Kind {
	if e.Params == nil {
		return KindUnknown
	}
	return e.Params.Kind()
}

// Frame is the set of events captured between two presents.
type Frame struct {
	Number         uint32
	CPUStartMicros uint64
	CPUEndMicros   uint64
	GPUFrequency   uint64
	Events         []Event
}

// StagedTexture is a render target readback. The pixels are never decoded.
type StagedTexture struct {
	Resource    uint64
	Width       uint32
	Height      uint32
	Format      uint32
	Pixels      []byte
	Subresource uint32
}

// Snapshot is everything recorded in one capture session.
type Snapshot struct {
	DurationSeconds float64
	Frames          []Frame
	StagedTextures  []StagedTexture
}

// EventCount returns the total number of events across all frames.
func (s *Snapshot) EventCount() int {
	n := 0
	for _, f := range s.Frames {
		n += len(f.Events)
	}
	return n
}
