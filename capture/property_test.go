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

package capture_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/tessapower/tattler/capture"
)

func genParams() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 7),
		gen.UInt32(),
		gen.UInt32(),
		gen.UInt32(),
		gen.UInt64(),
		gen.UInt64(),
		gen.Float32Range(-1, 1),
		gen.UInt8(),
	).Map(func(v []interface{}) capture.Params {
		a, b, c := v[1].(uint32), v[2].(uint32), v[3].(uint32)
		x, y := v[4].(uint64), v[5].(uint64)
		f, s := v[6].(float32), v[7].(uint8)
		switch v[0].(int) {
		case 0:
			return capture.Draw{VertexCount: a, InstanceCount: b}
		case 1:
			return capture.DrawIndexed{IndexCount: a, InstanceCount: b}
		case 2:
			return capture.Dispatch{X: a, Y: b, Z: c}
		case 3:
			return capture.Copy{Source: x, Destination: y}
		case 4:
			return capture.Barrier{Before: a, After: b, Resource: x}
		case 5:
			return capture.ClearColor{RenderTarget: x, Color: [4]float32{f, -f, f / 2, 1}}
		case 6:
			return capture.ClearDepth{DepthStencil: x, Depth: f, Stencil: s, Flags: c}
		default:
			return capture.Present{SyncInterval: a, Flags: b}
		}
	})
}

func genEvent() gopter.Gen {
	return gopter.CombineGens(
		gen.UInt32(),
		gen.UInt32(),
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt64(),
		genParams(),
	).Map(func(v []interface{}) capture.Event {
		return capture.Event{
			FrameIndex:    v[0].(uint32),
			EventIndex:    v[1].(uint32),
			Begin:         v[2].(uint64),
			End:           v[3].(uint64),
			CommandList:   v[4].(uint64),
			PipelineState: v[5].(uint64),
			RenderTarget:  v[6].(uint64),
			Params:        v[7].(capture.Params),
		}
	})
}

func genFrame() gopter.Gen {
	return gopter.CombineGens(
		gen.UInt32(),
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt64(),
		gen.SliceOf(genEvent()),
	).Map(func(v []interface{}) capture.Frame {
		return capture.Frame{
			Number:         v[0].(uint32),
			CPUStartMicros: v[1].(uint64),
			CPUEndMicros:   v[2].(uint64),
			GPUFrequency:   v[3].(uint64),
			Events:         v[4].([]capture.Event),
		}
	})
}

func genTexture() gopter.Gen {
	return gopter.CombineGens(
		gen.UInt64(),
		gen.UInt32(),
		gen.UInt32(),
		gen.UInt32(),
		gen.SliceOf(gen.UInt8()),
		gen.UInt32(),
	).Map(func(v []interface{}) capture.StagedTexture {
		return capture.StagedTexture{
			Resource:    v[0].(uint64),
			Width:       v[1].(uint32),
			Height:      v[2].(uint32),
			Format:      v[3].(uint32),
			Pixels:      v[4].([]uint8),
			Subresource: v[5].(uint32),
		}
	})
}

func genSnapshot() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 3600),
		gen.SliceOf(genFrame()),
		gen.SliceOf(genTexture()),
	).Map(func(v []interface{}) *capture.Snapshot {
		return &capture.Snapshot{
			DurationSeconds: v[0].(float64),
			Frames:          v[1].([]capture.Frame),
			StagedTextures:  v[2].([]capture.StagedTexture),
		}
	})
}

func properties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.MaxSize = 6
	return gopter.NewProperties(parameters)
}

func TestSerializeProperties(t *testing.T) {
	properties := properties()

	properties.Property("deserialize inverts serialize", prop.ForAll(
		func(s *capture.Snapshot) bool {
			data, err := capture.Serialize(s)
			if err != nil {
				return false
			}
			got, err := capture.Deserialize(data)
			if err != nil {
				return false
			}
			return cmp.Equal(s, got, cmpopts.EquateEmpty())
		},
		genSnapshot(),
	))

	properties.Property("truncated data never decodes", prop.ForAll(
		func(s *capture.Snapshot, frac float64) bool {
			data, err := capture.Serialize(s)
			if err != nil {
				return false
			}
			cut := int(frac * float64(len(data)))
			if cut >= len(data) {
				cut = len(data) - 1
			}
			got, err := capture.Deserialize(data[:cut])
			return got == nil && errors.Cause(err) == capture.ErrTruncated
		},
		genSnapshot(),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
