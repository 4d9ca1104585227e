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

package d3d12

import (
	"unsafe"

	"github.com/tessapower/tattler/capture"
)

// Field offsets of D3D12_RESOURCE_BARRIER. The union starts at a pointer
// aligned offset, which is 8 on every supported target.
const (
	barrierType        = 0
	barrierResource    = 8
	barrierStateBefore = barrierResource + wordSize + 4
	barrierStateAfter  = barrierStateBefore + 4
)

// firstTransition decodes the first entry of a barrier batch. Only
// transition barriers are recorded; the rest of the batch is ignored.
func firstTransition(count uint32, barriers uintptr) (capture.Barrier, bool) {
	if count == 0 || barriers == 0 || u32(barriers+barrierType) != resourceBarrierTransition {
		return capture.Barrier{}, false
	}
	return capture.Barrier{
		Resource: uint64(word(barriers + barrierResource)),
		Before:   u32(barriers + barrierStateBefore),
		After:    u32(barriers + barrierStateAfter),
	}, true
}

// firstHandle returns the first CPU descriptor handle of an array, or zero.
func firstHandle(count uint32, handles uintptr) uint64 {
	if count == 0 || handles == 0 {
		return 0
	}
	return uint64(word(handles))
}

// rgba reads a four component float color.
func rgba(color uintptr) [4]float32 {
	if color == 0 {
		return [4]float32{}
	}
	return *(*[4]float32)(unsafe.Pointer(color))
}
