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
	"unsafe"

	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook/vtable"
)

// Handlers for the native thunks. Each one forwards to the original entry
// exactly once, with or without an attached tracer.

func original(k vtable.Kind) C.uintptr_t { return C.uintptr_t(registry.Original(k)) }

// created reads the object written to a creation call's out parameter.
func created(hr C.int32_t, out C.uintptr_t) uintptr {
	if failed(hr) || out == 0 {
		return 0
	}
	return *(*uintptr)(unsafe.Pointer(uintptr(out)))
}

//export goD3D12CreateDevice
func goD3D12CreateDevice(adapter C.uintptr_t, level C.uint32_t, riid, out C.uintptr_t) C.int32_t {
	hr := C.tt_call_D3D12CreateDevice(original(kindD3D12CreateDevice), adapter, level, riid, out)
	s := active.Load()
	dev := created(hr, out)
	if s == nil || dev == 0 {
		return hr
	}
	installDevice(s.ctx, dev)
	if err := s.tracer.OnDeviceCreated(s.ctx, device{dev}); err != nil {
		log.E(s.ctx, "Preparing device for tracing: %v", err)
	}
	return hr
}

//export goCreateDXGIFactory2
func goCreateDXGIFactory2(flags C.uint32_t, riid, out C.uintptr_t) C.int32_t {
	hr := C.tt_call_CreateDXGIFactory2(original(kindCreateDXGIFactory2), flags, riid, out)
	s := active.Load()
	obj := created(hr, out)
	if s == nil || obj == 0 {
		return hr
	}
	var factory uintptr
	qi := C.tt_call_QueryInterface(method(obj, slotQueryInterface), C.uintptr_t(obj),
		unsafe.Pointer(&iidFactory2), unsafe.Pointer(&factory))
	if failed(qi) {
		return hr
	}
	installFactory(s.ctx, factory)
	release(factory)
	return hr
}

//export goCreateCommandQueue
func goCreateCommandQueue(self, desc, riid, out C.uintptr_t) C.int32_t {
	hr := C.tt_call_CreateCommandQueue(original(kindCreateCommandQueue), self, desc, riid, out)
	if s, q := active.Load(), created(hr, out); s != nil && q != 0 {
		installQueue(s.ctx, q)
	}
	return hr
}

//export goCreateCommandList
func goCreateCommandList(self C.uintptr_t, nodeMask, typ C.uint32_t, allocator, initial, riid, out C.uintptr_t) C.int32_t {
	hr := C.tt_call_CreateCommandList(original(kindCreateCommandList), self, nodeMask, typ, allocator, initial, riid, out)
	if s, l := active.Load(), created(hr, out); s != nil && l != 0 {
		installCommandList(s.ctx, l)
		s.tracer.SetPipelineState(uint64(l), uint64(initial))
	}
	return hr
}

//export goCreateSwapChainForHwnd
func goCreateSwapChainForHwnd(self, device, hwnd, desc, fullscreen, output, out C.uintptr_t) C.int32_t {
	hr := C.tt_call_CreateSwapChainForHwnd(original(kindCreateSwapChainForHwnd), self, device, hwnd, desc, fullscreen, output, out)
	if s, sc := active.Load(), created(hr, out); s != nil && sc != 0 {
		installSwapChain(s.ctx, sc)
	}
	return hr
}

//export goClose
func goClose(self C.uintptr_t) C.int32_t {
	var hr C.int32_t
	call := func() { hr = C.tt_call_Close(original(kindClose), self) }
	if s := active.Load(); s != nil {
		s.tracer.Close(commandList{uintptr(self)}, call)
	} else {
		call()
	}
	return hr
}

//export goReset
func goReset(self, allocator, initial C.uintptr_t) C.int32_t {
	if s := active.Load(); s != nil {
		s.tracer.ResetCommandList(uint64(self))
		s.tracer.SetPipelineState(uint64(self), uint64(initial))
	}
	return C.tt_call_Reset(original(kindReset), self, allocator, initial)
}

// record routes a command list call through the tracer when one is
// attached.
func record(self C.uintptr_t, p capture.Params, call func()) {
	if s := active.Load(); s != nil {
		s.tracer.Record(commandList{uintptr(self)}, p, call)
		return
	}
	call()
}

//export goDrawInstanced
func goDrawInstanced(self C.uintptr_t, vertices, instances, startVertex, startInstance C.uint32_t) {
	record(self, capture.Draw{VertexCount: uint32(vertices), InstanceCount: uint32(instances)}, func() {
		C.tt_call_DrawInstanced(original(kindDrawInstanced), self, vertices, instances, startVertex, startInstance)
	})
}

//export goDrawIndexedInstanced
func goDrawIndexedInstanced(self C.uintptr_t, indices, instances, startIndex C.uint32_t, baseVertex C.int32_t, startInstance C.uint32_t) {
	record(self, capture.DrawIndexed{IndexCount: uint32(indices), InstanceCount: uint32(instances)}, func() {
		C.tt_call_DrawIndexedInstanced(original(kindDrawIndexedInstanced), self, indices, instances, startIndex, baseVertex, startInstance)
	})
}

//export goDispatch
func goDispatch(self C.uintptr_t, x, y, z C.uint32_t) {
	record(self, capture.Dispatch{X: uint32(x), Y: uint32(y), Z: uint32(z)}, func() {
		C.tt_call_Dispatch(original(kindDispatch), self, x, y, z)
	})
}

//export goCopyResource
func goCopyResource(self, dst, src C.uintptr_t) {
	record(self, capture.Copy{Source: uint64(src), Destination: uint64(dst)}, func() {
		C.tt_call_CopyResource(original(kindCopyResource), self, dst, src)
	})
}

//export goSetPipelineState
func goSetPipelineState(self, pso C.uintptr_t) {
	if s := active.Load(); s != nil {
		s.tracer.SetPipelineState(uint64(self), uint64(pso))
	}
	C.tt_call_SetPipelineState(original(kindSetPipelineState), self, pso)
}

//export goResourceBarrier
func goResourceBarrier(self C.uintptr_t, count C.uint32_t, barriers C.uintptr_t) {
	call := func() {
		C.tt_call_ResourceBarrier(original(kindResourceBarrier), self, count, barriers)
	}
	if b, ok := firstTransition(uint32(count), uintptr(barriers)); ok {
		record(self, b, call)
		return
	}
	call()
}

//export goOMSetRenderTargets
func goOMSetRenderTargets(self C.uintptr_t, count C.uint32_t, rts C.uintptr_t, singleRange C.int32_t, ds C.uintptr_t) {
	if s := active.Load(); s != nil {
		s.tracer.SetRenderTarget(uint64(self), firstHandle(uint32(count), uintptr(rts)))
	}
	C.tt_call_OMSetRenderTargets(original(kindOMSetRenderTargets), self, count, rts, singleRange, ds)
}

//export goClearDepthStencilView
func goClearDepthStencilView(self, dsv C.uintptr_t, flags C.uint32_t, depth C.float, stencil C.uint8_t, rects C.uint32_t, pRects C.uintptr_t) {
	p := capture.ClearDepth{
		DepthStencil: uint64(dsv),
		Depth:        float32(depth),
		Stencil:      uint8(stencil),
		Flags:        uint32(flags),
	}
	record(self, p, func() {
		C.tt_call_ClearDepthStencilView(original(kindClearDepthStencilView), self, dsv, flags, depth, stencil, rects, pRects)
	})
}

//export goClearRenderTargetView
func goClearRenderTargetView(self, rtv, color C.uintptr_t, rects C.uint32_t, pRects C.uintptr_t) {
	p := capture.ClearColor{RenderTarget: uint64(rtv), Color: rgba(uintptr(color))}
	record(self, p, func() {
		C.tt_call_ClearRenderTargetView(original(kindClearRenderTargetView), self, rtv, color, rects, pRects)
	})
}

//export goExecuteCommandLists
func goExecuteCommandLists(self C.uintptr_t, count C.uint32_t, lists C.uintptr_t) {
	call := func() {
		C.tt_call_ExecuteCommandLists(original(kindExecuteCommandLists), self, count, lists)
	}
	if s := active.Load(); s != nil {
		s.tracer.Execute(commandQueue{uintptr(self)}, call)
		return
	}
	call()
}

//export goPresent
func goPresent(self C.uintptr_t, syncInterval, flags C.uint32_t) C.int32_t {
	var hr C.int32_t
	call := func() { hr = C.tt_call_Present(original(kindPresent), self, syncInterval, flags) }
	s := active.Load()
	if s == nil {
		call()
		return hr
	}
	s.tracer.Present(s.ctx, capture.Present{SyncInterval: uint32(syncInterval), Flags: uint32(flags)}, call)
	return hr
}
