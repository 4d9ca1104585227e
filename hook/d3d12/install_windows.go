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
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook"
	"github.com/tessapower/tattler/hook/vtable"
	"golang.org/x/sys/windows"
)

// state is what the native handlers route calls to. Driver callbacks carry
// no context so it is held process wide.
type state struct {
	ctx    context.Context
	tracer *hook.Tracer
}

var (
	active   atomic.Pointer[state]
	registry = vtable.NewRegistry(vtable.Default)

	importsMu sync.Mutex
	imports   []importPatch
)

func thunk(id C.int) uintptr { return uintptr(C.tt_thunk(id)) }

// redirect describes a global entry point reached through import tables.
type redirect struct {
	dll, fn string
	kind    vtable.Kind
	thunk   C.int
}

var redirects = []redirect{
	{"d3d12.dll", "D3D12CreateDevice", kindD3D12CreateDevice, C.TT_THUNK_D3D12_CREATE_DEVICE},
	{"dxgi.dll", "CreateDXGIFactory2", kindCreateDXGIFactory2, C.TT_THUNK_CREATE_DXGI_FACTORY2},
}

// loaderRedirects catch modules and lookups that bypass the import tables
// patched at install time.
var loaderRedirects = []redirect{
	{"", "GetProcAddress", kindGetProcAddress, C.TT_THUNK_GET_PROC_ADDRESS},
	{"", "LoadLibraryA", kindLoadLibraryA, C.TT_THUNK_LOAD_LIBRARY_A},
	{"", "LoadLibraryW", kindLoadLibraryW, C.TT_THUNK_LOAD_LIBRARY_W},
	{"", "LoadLibraryExA", kindLoadLibraryExA, C.TT_THUNK_LOAD_LIBRARY_EX_A},
	{"", "LoadLibraryExW", kindLoadLibraryExW, C.TT_THUNK_LOAD_LIBRARY_EX_W},
}

func importHooks() []importHook {
	out := make([]importHook, 0, len(redirects)+len(loaderRedirects))
	for _, r := range redirects {
		out = append(out, importHook{kind: r.kind, lib: named(r.dll), fn: r.fn, replacement: thunk(r.thunk)})
	}
	for _, r := range loaderRedirects {
		out = append(out, importHook{kind: r.kind, lib: loaderLibrary, fn: r.fn, replacement: thunk(r.thunk)})
	}
	return out
}

// selfModule returns the module holding the hooks. Its own imports are
// left alone so the runtime's library lookups never re-enter the hooks.
func selfModule() (uintptr, error) {
	var h windows.Handle
	err := windows.GetModuleHandleEx(
		windows.GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS|windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT,
		(*uint16)(unsafe.Pointer(thunk(C.TT_THUNK_PRESENT))), &h)
	return uintptr(h), err
}

// loadedModules lists every module mapped in the process except skip.
func loadedModules(skip uintptr) ([]uintptr, error) {
	mods := make([]windows.Handle, 256)
	for {
		var needed uint32
		size := uint32(len(mods)) * uint32(unsafe.Sizeof(mods[0]))
		if err := windows.EnumProcessModules(windows.CurrentProcess(), &mods[0], size, &needed); err != nil {
			return nil, err
		}
		n := int(needed / uint32(unsafe.Sizeof(mods[0])))
		if n > len(mods) {
			mods = make([]windows.Handle, n)
			continue
		}
		out := make([]uintptr, 0, n)
		for _, m := range mods[:n] {
			if uintptr(m) != skip {
				out = append(out, uintptr(m))
			}
		}
		return out, nil
	}
}

// redirectModules patches the import tables of every loaded module that
// has not been patched yet and records the originals.
func redirectModules(ctx context.Context) ([]importPatch, error) {
	self, err := selfModule()
	if err != nil {
		return nil, log.Err(ctx, err, "Finding hook module")
	}
	mods, err := loadedModules(self)
	if err != nil {
		return nil, log.Err(ctx, err, "Listing modules")
	}
	importsMu.Lock()
	defer importsMu.Unlock()
	patches, err := redirectImports(mods, importHooks(), vtable.Default, registry)
	imports = append(imports, patches...)
	if err != nil {
		return patches, log.Err(ctx, err, "Redirecting imports")
	}
	return patches, nil
}

// Install routes the process's Direct3D 12 and DXGI calls through t. It
// redirects the global creation functions in the import tables of every
// loaded module, and the loader functions so that modules loaded later and
// lookups by name are redirected too. The tables of objects the creation
// functions return are patched as those objects appear.
func Install(ctx context.Context, t *hook.Tracer) error {
	if !active.CompareAndSwap(nil, &state{ctx: ctx, tracer: t}) {
		return errors.New("Hooks already installed")
	}
	patches, err := redirectModules(ctx)
	if err != nil {
		Uninstall(ctx)
		return err
	}
	graphics := 0
	for _, p := range patches {
		if p.kind == kindD3D12CreateDevice || p.kind == kindCreateDXGIFactory2 {
			graphics++
		}
	}
	if len(patches) == 0 {
		Uninstall(ctx)
		return log.Err(ctx, ErrImportNotFound, "No entry points to hook")
	}
	if graphics == 0 {
		log.W(ctx, "No module imports the graphics entry points yet, waiting for them to be loaded")
	}
	log.I(ctx, "Redirected %d imports, %d of them graphics entry points", len(patches), graphics)
	return nil
}

// lookup returns the redirect for an exported function of module, if it is
// one of the global graphics entry points.
func lookup(module uintptr, fn string) (redirect, bool) {
	for _, r := range redirects {
		if r.fn != fn {
			continue
		}
		path, err := moduleFileName(windows.Handle(module))
		if err == nil && strings.EqualFold(filepath.Base(path), r.dll) {
			return r, true
		}
	}
	return redirect{}, false
}

func moduleFileName(h windows.Handle) (string, error) {
	buf := make([]uint16, windows.MAX_PATH)
	n, err := windows.GetModuleFileName(h, &buf[0], uint32(len(buf)))
	if err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:n]), nil
}

// Uninstall restores every patched import and table entry and detaches the
// tracer. Imports of modules unloaded since they were patched are skipped.
// Originals stay recorded so calls already inside a handler still reach the
// driver.
func Uninstall(ctx context.Context) error {
	active.Store(nil)
	var present map[uintptr]bool
	if mods, err := loadedModules(0); err == nil {
		present = map[uintptr]bool{}
		for _, m := range mods {
			present[m] = true
		}
	}
	importsMu.Lock()
	var first error
	for i := len(imports) - 1; i >= 0; i-- {
		p := imports[i]
		if present != nil && !present[p.module] {
			continue
		}
		if _, err := vtable.Default.PatchWord(p.slot, p.prev); err != nil && first == nil {
			first = err
		}
	}
	imports = nil
	importsMu.Unlock()
	if err := registry.RestoreAll(); err != nil && first == nil {
		first = err
	}
	if first != nil {
		return log.Err(ctx, first, "Restoring hooks")
	}
	return nil
}

func install(ctx context.Context, what string, obj uintptr, hooks ...vtable.Hook) {
	patched, err := registry.Install(obj, hooks...)
	switch {
	case err != nil:
		log.E(ctx, "Hooking %s: %v", what, err)
	case patched:
		log.D(ctx, "Hooked %s table", what)
	}
}

func installDevice(ctx context.Context, dev uintptr) {
	install(ctx, "device", dev,
		vtable.Hook{Kind: kindCreateCommandQueue, Slot: slotDeviceCreateCommandQueue, Replacement: thunk(C.TT_THUNK_CREATE_COMMAND_QUEUE)},
		vtable.Hook{Kind: kindCreateCommandList, Slot: slotDeviceCreateCommandList, Replacement: thunk(C.TT_THUNK_CREATE_COMMAND_LIST)},
	)
}

func installQueue(ctx context.Context, q uintptr) {
	install(ctx, "command queue", q,
		vtable.Hook{Kind: kindExecuteCommandLists, Slot: slotQueueExecuteCommandLists, Replacement: thunk(C.TT_THUNK_EXECUTE_COMMAND_LISTS)},
	)
}

func installCommandList(ctx context.Context, l uintptr) {
	install(ctx, "command list", l,
		vtable.Hook{Kind: kindClose, Slot: slotListClose, Replacement: thunk(C.TT_THUNK_CLOSE)},
		vtable.Hook{Kind: kindReset, Slot: slotListReset, Replacement: thunk(C.TT_THUNK_RESET)},
		vtable.Hook{Kind: kindDrawInstanced, Slot: slotListDrawInstanced, Replacement: thunk(C.TT_THUNK_DRAW_INSTANCED)},
		vtable.Hook{Kind: kindDrawIndexedInstanced, Slot: slotListDrawIndexedInstanced, Replacement: thunk(C.TT_THUNK_DRAW_INDEXED_INSTANCED)},
		vtable.Hook{Kind: kindDispatch, Slot: slotListDispatch, Replacement: thunk(C.TT_THUNK_DISPATCH)},
		vtable.Hook{Kind: kindCopyResource, Slot: slotListCopyResource, Replacement: thunk(C.TT_THUNK_COPY_RESOURCE)},
		vtable.Hook{Kind: kindSetPipelineState, Slot: slotListSetPipelineState, Replacement: thunk(C.TT_THUNK_SET_PIPELINE_STATE)},
		vtable.Hook{Kind: kindResourceBarrier, Slot: slotListResourceBarrier, Replacement: thunk(C.TT_THUNK_RESOURCE_BARRIER)},
		vtable.Hook{Kind: kindOMSetRenderTargets, Slot: slotListOMSetRenderTargets, Replacement: thunk(C.TT_THUNK_OM_SET_RENDER_TARGETS)},
		vtable.Hook{Kind: kindClearDepthStencilView, Slot: slotListClearDepthStencilView, Replacement: thunk(C.TT_THUNK_CLEAR_DEPTH_STENCIL_VIEW)},
		vtable.Hook{Kind: kindClearRenderTargetView, Slot: slotListClearRenderTargetView, Replacement: thunk(C.TT_THUNK_CLEAR_RENDER_TARGET_VIEW)},
	)
}

func installFactory(ctx context.Context, f uintptr) {
	install(ctx, "DXGI factory", f,
		vtable.Hook{Kind: kindCreateSwapChainForHwnd, Slot: slotFactoryCreateSwapChainForHwnd, Replacement: thunk(C.TT_THUNK_CREATE_SWAP_CHAIN_FOR_HWND)},
	)
}

func installSwapChain(ctx context.Context, sc uintptr) {
	install(ctx, "swap chain", sc,
		vtable.Hook{Kind: kindPresent, Slot: slotSwapChainPresent, Replacement: thunk(C.TT_THUNK_PRESENT)},
	)
}
