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

// Package d3d12 installs the Direct3D 12 and DXGI interception hooks and
// routes every intercepted call through a hook.Tracer.
package d3d12

import "github.com/tessapower/tattler/hook/vtable"

// Dispatch table slots of the hooked interfaces. Each index counts the
// inherited IUnknown and ID3D12Object or IDXGIObject entries.
const (
	slotQueryInterface = 0
	slotRelease        = 2

	slotDeviceCreateCommandQueue      = 8
	slotDeviceCreateCommandList       = 12
	slotDeviceCreateCommittedResource = 27
	slotDeviceCreateFence             = 36
	slotDeviceCreateQueryHeap         = 39

	slotListClose                 = 9
	slotListReset                 = 10
	slotListDrawInstanced         = 12
	slotListDrawIndexedInstanced  = 13
	slotListDispatch              = 14
	slotListCopyResource          = 17
	slotListSetPipelineState      = 25
	slotListResourceBarrier       = 26
	slotListOMSetRenderTargets    = 46
	slotListClearDepthStencilView = 47
	slotListClearRenderTargetView = 48
	slotListEndQuery              = 53
	slotListResolveQueryData      = 54

	slotQueueExecuteCommandLists   = 10
	slotQueueSignal                = 14
	slotQueueGetTimestampFrequency = 16

	slotFenceGetCompletedValue    = 8
	slotFenceSetEventOnCompletion = 9

	slotResourceMap   = 8
	slotResourceUnmap = 9

	slotSwapChainPresent = 8

	slotFactoryCreateSwapChainForHwnd = 15
)

// Hook kinds. Each kind records one original function for the process.
const (
	kindD3D12CreateDevice vtable.Kind = iota
	kindCreateDXGIFactory2
	kindCreateCommandQueue
	kindCreateCommandList
	kindCreateSwapChainForHwnd
	kindClose
	kindReset
	kindDrawInstanced
	kindDrawIndexedInstanced
	kindDispatch
	kindCopyResource
	kindSetPipelineState
	kindResourceBarrier
	kindOMSetRenderTargets
	kindClearDepthStencilView
	kindClearRenderTargetView
	kindExecuteCommandLists
	kindPresent
	kindGetProcAddress
	kindLoadLibraryA
	kindLoadLibraryW
	kindLoadLibraryExA
	kindLoadLibraryExW
)

// D3D12 enumerant values used by the hooks.
const (
	queryHeapTypeTimestamp = 1
	queryTypeTimestamp     = 2

	heapTypeReadback          = 3
	resourceDimensionBuffer   = 1
	textureLayoutRowMajor     = 1
	resourceStateCopyDest     = 0x400
	resourceBarrierTransition = 0
)
