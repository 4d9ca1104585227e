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
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/fault"
	"github.com/tessapower/tattler/hook/vtable"
)

// ErrImportNotFound is returned when a module does not import the requested
// function by name.
const ErrImportNotFound = fault.Const("Import not found")

// ErrNotImage is returned when memory does not hold a mapped PE image.
const ErrNotImage = fault.Const("Not a PE image")

const (
	dosMagic        = 0x5a4d
	ntSignature     = 0x00004550
	optionalMagic32 = 0x10b
	optionalMagic64 = 0x20b
	importDirectory = 1
	descriptorSize  = 20
	fileHeaderSize  = 20
)

func u16(addr uintptr) uint16   { return *(*uint16)(unsafe.Pointer(addr)) }
func u32(addr uintptr) uint32   { return *(*uint32)(unsafe.Pointer(addr)) }
func word(addr uintptr) uintptr { return *(*uintptr)(unsafe.Pointer(addr)) }

func cstring(addr uintptr) string {
	n := 0
	for *(*byte)(unsafe.Pointer(addr + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
}

// library matches the name under which an image imports a library.
type library func(name string) bool

// named matches dll case insensitively.
func named(dll string) library {
	return func(name string) bool { return strings.EqualFold(name, dll) }
}

// loaderLibrary matches kernel32 and the API sets that export the loader
// functions.
func loaderLibrary(name string) bool {
	name = strings.ToLower(name)
	return name == "kernel32.dll" || name == "kernelbase.dll" ||
		strings.HasPrefix(name, "api-ms-win-core-libraryloader-")
}

// importSlot returns the address of the import address table entry through
// which the image mapped at base calls function fn of library dll. The
// library name is matched case insensitively.
func importSlot(base uintptr, dll, fn string) (uintptr, error) {
	return findImport(base, named(dll), fn)
}

func findImport(base uintptr, lib library, fn string) (uintptr, error) {
	if u16(base) != dosMagic {
		return 0, ErrNotImage
	}
	nt := base + uintptr(u32(base+0x3c))
	if u32(nt) != ntSignature {
		return 0, ErrNotImage
	}
	opt := nt + 4 + fileHeaderSize
	var dirs uintptr
	switch u16(opt) {
	case optionalMagic32:
		dirs = opt + 96
	case optionalMagic64:
		dirs = opt + 112
	default:
		return 0, ErrNotImage
	}
	if (u16(opt) == optionalMagic64) != (wordSize == 8) {
		return 0, ErrNotImage
	}
	rva := u32(dirs + importDirectory*8)
	if rva == 0 {
		return 0, ErrImportNotFound
	}
	for desc := base + uintptr(rva); ; desc += descriptorSize {
		names, name, first := u32(desc), u32(desc+12), u32(desc+16)
		if name == 0 {
			return 0, ErrImportNotFound
		}
		if !lib(cstring(base + uintptr(name))) {
			continue
		}
		if names == 0 {
			names = first
		}
		for i := uintptr(0); ; i++ {
			entry := word(base + uintptr(names) + i*wordSize)
			if entry == 0 {
				break
			}
			if entry&ordinalFlag != 0 {
				continue
			}
			// Skip the two byte hint.
			if cstring(base+(entry&0x7fffffff)+2) == fn {
				return base + uintptr(first) + i*wordSize, nil
			}
		}
	}
}

const wordSize = unsafe.Sizeof(uintptr(0))

const ordinalFlag = uintptr(1) << (wordSize*8 - 1)

// importHook redirects every by-name import of fn from lib.
type importHook struct {
	kind        vtable.Kind
	lib         library
	fn          string
	replacement uintptr
}

// importPatch is one import address table entry written by redirectImports.
type importPatch struct {
	kind   vtable.Kind
	module uintptr
	slot   uintptr
	prev   uintptr
}

// redirectImports points the matching imports of every image at the hook's
// replacement. Memory that is not an image and images without the import
// are skipped, as are slots that already hold the replacement, so running
// it again only patches modules loaded since. Each slot's entry is recorded
// in reg as the kind's original before the slot is written, so a call that
// races the write already finds it. The patches written before an error
// are returned with it.
func redirectImports(images []uintptr, hooks []importHook, p *vtable.Patcher, reg *vtable.Registry) ([]importPatch, error) {
	var out []importPatch
	for _, base := range images {
		for _, h := range hooks {
			slot, err := findImport(base, h.lib, h.fn)
			if err == ErrNotImage {
				break
			}
			if err != nil || word(slot) == h.replacement {
				continue
			}
			reg.SetOriginal(h.kind, word(slot))
			prev, err := p.PatchWord(slot, h.replacement)
			if word(slot) == h.replacement {
				out = append(out, importPatch{kind: h.kind, module: base, slot: slot, prev: prev})
			}
			if err != nil {
				return out, errors.Wrapf(err, "Redirecting %s in module 0x%x", h.fn, base)
			}
		}
	}
	return out, nil
}
