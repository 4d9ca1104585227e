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

package d3d12

// #include "glue_windows.h"
import "C"

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/hook"
	"github.com/tessapower/tattler/hook/vtable"
	"golang.org/x/sys/windows"
)

var (
	iidQueryHeap = windows.GUID{Data1: 0x0d9658ae, Data2: 0xed45, Data3: 0x469e, Data4: [8]byte{0xa6, 0x1d, 0x97, 0x0e, 0xc5, 0x83, 0xca, 0xb4}}
	iidResource  = windows.GUID{Data1: 0x696442be, Data2: 0xa72e, Data3: 0x4059, Data4: [8]byte{0xbc, 0x79, 0x5b, 0x5c, 0x98, 0x04, 0x0f, 0xad}}
	iidFence     = windows.GUID{Data1: 0x0a753dcf, Data2: 0xc4d8, Data3: 0x4b91, Data4: [8]byte{0xad, 0xf6, 0xbe, 0x5a, 0x60, 0xd9, 0x5a, 0x76}}
	iidFactory2  = windows.GUID{Data1: 0x50c83a1c, Data2: 0xe072, Data3: 0x4c48, Data4: [8]byte{0x87, 0xb0, 0x36, 0x30, 0xfa, 0x36, 0xa6, 0xd0}}
)

var (
	_ hook.Device         = device{}
	_ hook.QueryPool      = queryHeap{}
	_ hook.ReadbackBuffer = resource{}
	_ hook.CommandList    = commandList{}
	_ hook.Queue          = commandQueue{}
	_ hook.Fence          = (*fence)(nil)
)

// hresult is a failed COM result code.
type hresult int32

func (hr hresult) Error() string { return fmt.Sprintf("HRESULT 0x%08x", uint32(hr)) }

func failed(hr C.int32_t) bool { return hr < 0 }

func check(hr C.int32_t, what string) error {
	if failed(hr) {
		return errors.Wrap(hresult(hr), what)
	}
	return nil
}

func method(obj uintptr, slot int) C.uintptr_t {
	return C.uintptr_t(vtable.Of(obj).Entry(slot))
}

func release(obj uintptr) {
	if obj != 0 {
		C.tt_call_Release(method(obj, slotRelease), C.uintptr_t(obj))
	}
}

type queryHeapDesc struct {
	Type, Count, NodeMask uint32
}

type heapProperties struct {
	Type, CPUPageProperty, MemoryPoolPreference, CreationNodeMask, VisibleNodeMask uint32
}

type resourceDesc struct {
	Dimension        uint32
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           uint32
	SampleCount      uint32
	SampleQuality    uint32
	Layout           uint32
	Flags            uint32
}

// device adapts an ID3D12Device to hook.Device.
type device struct{ ptr uintptr }

func (d device) CreateTimestampPool(count int) (hook.QueryPool, error) {
	desc := queryHeapDesc{Type: queryHeapTypeTimestamp, Count: uint32(count)}
	var out uintptr
	hr := C.tt_call_CreateQueryHeap(method(d.ptr, slotDeviceCreateQueryHeap), C.uintptr_t(d.ptr),
		unsafe.Pointer(&desc), unsafe.Pointer(&iidQueryHeap), unsafe.Pointer(&out))
	if err := check(hr, "CreateQueryHeap"); err != nil {
		return nil, err
	}
	return queryHeap{out}, nil
}

func (d device) CreateReadbackBuffer(size int) (hook.ReadbackBuffer, error) {
	heap := heapProperties{Type: heapTypeReadback, CreationNodeMask: 1, VisibleNodeMask: 1}
	desc := resourceDesc{
		Dimension:        resourceDimensionBuffer,
		Width:            uint64(size),
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		SampleCount:      1,
		Layout:           textureLayoutRowMajor,
	}
	var out uintptr
	hr := C.tt_call_CreateCommittedResource(method(d.ptr, slotDeviceCreateCommittedResource), C.uintptr_t(d.ptr),
		unsafe.Pointer(&heap), 0, unsafe.Pointer(&desc), resourceStateCopyDest,
		unsafe.Pointer(&iidResource), unsafe.Pointer(&out))
	if err := check(hr, "CreateCommittedResource"); err != nil {
		return nil, err
	}
	return resource{out}, nil
}

func (d device) CreateFence() (hook.Fence, error) {
	var out uintptr
	hr := C.tt_call_CreateFence(method(d.ptr, slotDeviceCreateFence), C.uintptr_t(d.ptr), 0, 0,
		unsafe.Pointer(&iidFence), unsafe.Pointer(&out))
	if err := check(hr, "CreateFence"); err != nil {
		return nil, err
	}
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		release(out)
		return nil, errors.Wrap(err, "CreateEvent")
	}
	return &fence{ptr: out, event: event}, nil
}

type queryHeap struct{ ptr uintptr }

func (q queryHeap) Release() { release(q.ptr) }

type resource struct{ ptr uintptr }

func (r resource) Map(size int) ([]byte, error) {
	var data uintptr
	hr := C.tt_call_Map(method(r.ptr, slotResourceMap), C.uintptr_t(r.ptr), 0, unsafe.Pointer(&data))
	if err := check(hr, "Map"); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(data)), size), nil
}

func (r resource) Unmap() {
	C.tt_call_Unmap(method(r.ptr, slotResourceUnmap), C.uintptr_t(r.ptr), 0)
}

func (r resource) Release() { release(r.ptr) }

// commandList adapts an ID3D12GraphicsCommandList to hook.CommandList.
type commandList struct{ ptr uintptr }

func (l commandList) ID() uint64 { return uint64(l.ptr) }

func (l commandList) EndTimestamp(pool hook.QueryPool, slot uint32) {
	heap := pool.(queryHeap)
	C.tt_call_EndQuery(method(l.ptr, slotListEndQuery), C.uintptr_t(l.ptr), C.uintptr_t(heap.ptr),
		queryTypeTimestamp, C.uint32_t(slot))
}

func (l commandList) ResolveTimestamps(pool hook.QueryPool, count uint32, dst hook.ReadbackBuffer) {
	heap := pool.(queryHeap)
	buf := dst.(resource)
	C.tt_call_ResolveQueryData(method(l.ptr, slotListResolveQueryData), C.uintptr_t(l.ptr), C.uintptr_t(heap.ptr),
		queryTypeTimestamp, 0, C.uint32_t(count), C.uintptr_t(buf.ptr), 0)
}

// commandQueue adapts an ID3D12CommandQueue to hook.Queue.
type commandQueue struct{ ptr uintptr }

func (q commandQueue) TimestampFrequency() (uint64, error) {
	var freq uint64
	hr := C.tt_call_GetTimestampFrequency(method(q.ptr, slotQueueGetTimestampFrequency), C.uintptr_t(q.ptr),
		unsafe.Pointer(&freq))
	if err := check(hr, "GetTimestampFrequency"); err != nil {
		return 0, err
	}
	return freq, nil
}

func (q commandQueue) Signal(f hook.Fence, value uint64) error {
	hr := C.tt_call_Signal(method(q.ptr, slotQueueSignal), C.uintptr_t(q.ptr), C.uintptr_t(f.(*fence).ptr),
		C.uint64_t(value))
	return check(hr, "Signal")
}

// fence adapts an ID3D12Fence to hook.Fence.
type fence struct {
	ptr   uintptr
	event windows.Handle
}

// fenceWaitStep bounds each wait so cancellation is noticed.
const fenceWaitStep = 100 * time.Millisecond

func (f *fence) Completed() uint64 {
	return uint64(C.tt_call_GetCompletedValue(method(f.ptr, slotFenceGetCompletedValue), C.uintptr_t(f.ptr)))
}

func (f *fence) Wait(ctx context.Context, value uint64) error {
	if f.Completed() >= value {
		return nil
	}
	hr := C.tt_call_SetEventOnCompletion(method(f.ptr, slotFenceSetEventOnCompletion), C.uintptr_t(f.ptr),
		C.uint64_t(value), C.uintptr_t(f.event))
	if err := check(hr, "SetEventOnCompletion"); err != nil {
		return err
	}
	for f.Completed() < value {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := windows.WaitForSingleObject(f.event, uint32(fenceWaitStep/time.Millisecond))
		if err != nil {
			return errors.Wrap(err, "WaitForSingleObject")
		}
		if ev == windows.WAIT_OBJECT_0 {
			break
		}
	}
	return nil
}

func (f *fence) Release() {
	windows.CloseHandle(f.event)
	release(f.ptr)
}
