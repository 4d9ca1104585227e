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
	"runtime"
	"testing"
	"unsafe"

	"github.com/tessapower/tattler/core/assert"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook/vtable"
)

// image is a minimal mapped PE image with an import directory.
type image struct {
	words []uintptr
	bytes []byte
}

// blankImage has headers and an import directory at 0x200 with room for
// two descriptors.
func blankImage() *image {
	const size = 0x800
	words := make([]uintptr, size/wordSize)
	img := &image{
		words: words,
		bytes: unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size),
	}
	img.put16(0, dosMagic)
	img.put32(0x3c, 0x40)
	img.put32(0x40, ntSignature)
	opt := 0x40 + 4 + fileHeaderSize
	dirs := opt + 112
	if wordSize == 8 {
		img.put16(opt, optionalMagic64)
	} else {
		img.put16(opt, optionalMagic32)
		dirs = opt + 96
	}
	img.put32(dirs+importDirectory*8, 0x200)
	return img
}

func newImage() *image {
	img := blankImage()
	img.descriptor(0x200, 0x300, "KERNEL32.dll", 0x400, 0x500)
	img.descriptor(0x200+descriptorSize, 0x310, "D3D12.dll", 0x440, 0x540)

	img.named(0x400, 0, 0x600, "ExitProcess")
	img.putWord(0x440, ordinalFlag|5)
	img.named(0x440, 1, 0x620, "D3D12CreateDevice")
	return img
}

func (i *image) base() uintptr { return uintptr(unsafe.Pointer(&i.words[0])) }

func (i *image) put16(off int, v uint16) { *(*uint16)(unsafe.Pointer(&i.bytes[off])) = v }
func (i *image) put32(off int, v uint32) { *(*uint32)(unsafe.Pointer(&i.bytes[off])) = v }
func (i *image) putWord(off int, v uintptr) {
	*(*uintptr)(unsafe.Pointer(&i.bytes[off])) = v
}

func (i *image) descriptor(at, nameAt int, name string, names, first int) {
	copy(i.bytes[nameAt:], name)
	i.put32(at, uint32(names))
	i.put32(at+12, uint32(nameAt))
	i.put32(at+16, uint32(first))
}

func (i *image) named(table, index, at int, name string) {
	copy(i.bytes[at+2:], name)
	i.putWord(table+index*int(wordSize), uintptr(at))
}

func TestImportSlotFindsNamedImport(t *testing.T) {
	ctx := log.Testing(t)
	img := newImage()
	slot, err := importSlot(img.base(), "d3d12.dll", "D3D12CreateDevice")
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "slot").That(slot).Equals(img.base() + 0x540 + wordSize)

	slot, err = importSlot(img.base(), "kernel32.dll", "ExitProcess")
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "slot").That(slot).Equals(img.base() + 0x500)
	runtime.KeepAlive(img)
}

func TestImportSlotMissing(t *testing.T) {
	ctx := log.Testing(t)
	img := newImage()
	_, err := importSlot(img.base(), "d3d12.dll", "D3D12GetDebugInterface")
	assert.For(ctx, "missing function").ThatError(err).Equals(ErrImportNotFound)
	_, err = importSlot(img.base(), "dxgi.dll", "CreateDXGIFactory2")
	assert.For(ctx, "missing library").ThatError(err).Equals(ErrImportNotFound)
	runtime.KeepAlive(img)
}

func TestImportSlotRejectsNonImage(t *testing.T) {
	ctx := log.Testing(t)
	img := newImage()
	img.put16(0, 0)
	_, err := importSlot(img.base(), "d3d12.dll", "D3D12CreateDevice")
	assert.For(ctx, "err").ThatError(err).Equals(ErrNotImage)
	runtime.KeepAlive(img)
}

// newEngineImage imports the loader through an API set, the way a module
// built against a recent SDK does, and creates devices itself.
func newEngineImage() *image {
	img := blankImage()
	img.descriptor(0x200, 0x300, "api-ms-win-core-libraryloader-l1-2-0.dll", 0x400, 0x500)
	img.descriptor(0x200+descriptorSize, 0x340, "d3d12.dll", 0x440, 0x540)
	img.named(0x400, 0, 0x600, "GetProcAddress")
	img.named(0x440, 0, 0x620, "D3D12CreateDevice")
	return img
}

func TestRedirectImportsInEveryModule(t *testing.T) {
	ctx := log.Testing(t)
	const (
		realCreate   = uintptr(0xd3d0)
		realLookup   = uintptr(0x6a00)
		createThunk  = uintptr(0x7001)
		lookupThunk  = uintptr(0x7002)
		kindCreate   = vtable.Kind(1)
		kindLookup   = vtable.Kind(2)
		exeCreateAt  = 0x540 + int(wordSize)
		engineLookup = 0x500
		engineCreate = 0x540
	)
	exe, engine := newImage(), newEngineImage()
	exe.putWord(exeCreateAt, realCreate)
	engine.putWord(engineCreate, realCreate)
	engine.putWord(engineLookup, realLookup)
	data := make([]uintptr, 64)
	hooks := []importHook{
		{kind: kindCreate, lib: named("d3d12.dll"), fn: "D3D12CreateDevice", replacement: createThunk},
		{kind: kindLookup, lib: loaderLibrary, fn: "GetProcAddress", replacement: lookupThunk},
	}
	patcher := vtable.NewPatcher(vtable.Writable{})
	reg := vtable.NewRegistry(patcher)
	modules := []uintptr{exe.base(), uintptr(unsafe.Pointer(&data[0])), engine.base()}

	patches, err := redirectImports(modules, hooks, patcher, reg)
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "patches").ThatSlice(patches).IsLength(3)
	assert.For(ctx, "exe create").That(word(exe.base() + uintptr(exeCreateAt))).Equals(createThunk)
	assert.For(ctx, "engine create").That(word(engine.base() + engineCreate)).Equals(createThunk)
	assert.For(ctx, "engine lookup").That(word(engine.base() + engineLookup)).Equals(lookupThunk)
	assert.For(ctx, "exe untouched").That(word(exe.base() + 0x500)).Equals(uintptr(0))
	for _, p := range patches {
		assert.For(ctx, "prev").That(p.prev).NotEquals(uintptr(0))
	}
	assert.For(ctx, "create original").That(reg.Original(kindCreate)).Equals(realCreate)
	assert.For(ctx, "lookup original").That(reg.Original(kindLookup)).Equals(realLookup)

	patches, err = redirectImports(modules, hooks, patcher, reg)
	assert.For(ctx, "again").ThatError(err).Succeeded()
	assert.For(ctx, "again patches").ThatSlice(patches).IsEmpty()
	runtime.KeepAlive(exe)
	runtime.KeepAlive(engine)
	runtime.KeepAlive(data)
}

func TestLoaderLibraryNames(t *testing.T) {
	ctx := log.Testing(t)
	assert.For(ctx, "kernel32").That(loaderLibrary("KERNEL32.dll")).Equals(true)
	assert.For(ctx, "api set").That(loaderLibrary("api-ms-win-core-libraryloader-l1-1-0.dll")).Equals(true)
	assert.For(ctx, "other").That(loaderLibrary("user32.dll")).Equals(false)
}
