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

import (
	"io"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Process ids used in exported traces.
const (
	tracePIDCPU = 1
	tracePIDGPU = 2
)

type traceEvent struct {
	Name  string                 `json:"name"`
	Cat   string                 `json:"cat,omitempty"`
	Phase string                 `json:"ph"`
	TS    float64                `json:"ts"`
	Dur   float64                `json:"dur,omitempty"`
	PID   int                    `json:"pid"`
	TID   uint64                 `json:"tid"`
	Args  map[string]interface{} `json:"args,omitempty"`
}

type traceFile struct {
	TraceEvents     []traceEvent `json:"traceEvents"`
	DisplayTimeUnit string       `json:"displayTimeUnit"`
}

// WriteChromeTrace writes s in the Chrome trace event format.
//
// Frames appear as CPU spans, rebased to the first frame's start. GPU events
// appear on one track per command list, converted to microseconds with their
// frame's frequency and rebased to the earliest GPU tick of the capture.
func WriteChromeTrace(w io.Writer, s *Snapshot) error {
	out := traceFile{DisplayTimeUnit: "ms"}
	out.TraceEvents = append(out.TraceEvents,
		processName(tracePIDCPU, "CPU"),
		processName(tracePIDGPU, "GPU"),
	)

	var cpuBase uint64
	if len(s.Frames) > 0 {
		cpuBase = s.Frames[0].CPUStartMicros
	}
	gpuBase, haveGPU := uint64(0), false
	for _, f := range s.Frames {
		if b, _, ok := f.GPUSpan(); ok && (!haveGPU || b < gpuBase) {
			gpuBase, haveGPU = b, true
		}
	}

	for _, f := range s.Frames {
		out.TraceEvents = append(out.TraceEvents, traceEvent{
			Name:  "Frame",
			Cat:   "frame",
			Phase: "X",
			TS:    float64(f.CPUStartMicros - cpuBase),
			Dur:   float64(f.CPUDuration().Microseconds()),
			PID:   tracePIDCPU,
			Args:  map[string]interface{}{"frame": f.Number, "events": len(f.Events)},
		})
		for _, e := range f.Events {
			out.TraceEvents = append(out.TraceEvents, traceEvent{
				Name:  e.Kind().String(),
				Cat:   "gpu",
				Phase: "X",
				TS:    ticksToMicros(e.Begin-gpuBase, f.GPUFrequency),
				Dur:   ticksToMicros(e.gpuTicks(), f.GPUFrequency),
				PID:   tracePIDGPU,
				TID:   e.CommandList,
				Args:  eventArgs(e),
			})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return errors.Wrap(enc.Encode(out), "Writing trace")
}

func processName(pid int, name string) traceEvent {
	return traceEvent{
		Name:  "process_name",
		Phase: "M",
		PID:   pid,
		Args:  map[string]interface{}{"name": name},
	}
}

func ticksToMicros(ticks, freq uint64) float64 {
	if freq == 0 {
		return 0
	}
	return float64(ticks) * 1e6 / float64(freq)
}

func eventArgs(e Event) map[string]interface{} {
	args := map[string]interface{}{
		"frame": e.FrameIndex,
		"index": e.EventIndex,
	}
	if e.PipelineState != 0 {
		args["pipeline"] = e.PipelineState
	}
	if e.RenderTarget != 0 {
		args["renderTarget"] = e.RenderTarget
	}
	switch p := e.Params.(type) {
	case Draw:
		args["vertexCount"] = p.VertexCount
		args["instanceCount"] = p.InstanceCount
	case DrawIndexed:
		args["indexCount"] = p.IndexCount
		args["instanceCount"] = p.InstanceCount
	case Dispatch:
		args["groups"] = []uint32{p.X, p.Y, p.Z}
	case Copy:
		args["source"] = p.Source
		args["destination"] = p.Destination
	case Barrier:
		args["before"] = p.Before
		args["after"] = p.After
		args["resource"] = p.Resource
	case ClearColor:
		args["renderTarget"] = p.RenderTarget
		args["color"] = p.Color[:]
	case ClearDepth:
		args["depthStencil"] = p.DepthStencil
		args["depth"] = p.Depth
		args["stencil"] = p.Stencil
		args["flags"] = p.Flags
	case Present:
		args["syncInterval"] = p.SyncInterval
		args["flags"] = p.Flags
	}
	return args
}
