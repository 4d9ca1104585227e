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

import "github.com/tessapower/tattler/core/log"

// Handlers for the loader redirections. A by-name lookup of a graphics entry
// point returns its thunk, and every successful load patches the imports of
// the modules it brought in.

//export goGetProcAddress
func goGetProcAddress(module, name C.uintptr_t) C.uintptr_t {
	fn := C.tt_call_GetProcAddress(original(kindGetProcAddress), module, name)
	// Names below 64K are ordinals.
	if fn == 0 || uintptr(name)>>16 == 0 || active.Load() == nil {
		return fn
	}
	r, ok := lookup(uintptr(module), cstring(uintptr(name)))
	if !ok {
		return fn
	}
	registry.SetOriginal(r.kind, uintptr(fn))
	return C.uintptr_t(thunk(r.thunk))
}

//export goLoadLibraryA
func goLoadLibraryA(name C.uintptr_t) C.uintptr_t {
	return loaded(C.tt_call_LoadLibrary(original(kindLoadLibraryA), name))
}

//export goLoadLibraryW
func goLoadLibraryW(name C.uintptr_t) C.uintptr_t {
	return loaded(C.tt_call_LoadLibrary(original(kindLoadLibraryW), name))
}

//export goLoadLibraryExA
func goLoadLibraryExA(name, file C.uintptr_t, flags C.uint32_t) C.uintptr_t {
	return loaded(C.tt_call_LoadLibraryEx(original(kindLoadLibraryExA), name, file, flags))
}

//export goLoadLibraryExW
func goLoadLibraryExW(name, file C.uintptr_t, flags C.uint32_t) C.uintptr_t {
	return loaded(C.tt_call_LoadLibraryEx(original(kindLoadLibraryExW), name, file, flags))
}

func loaded(module C.uintptr_t) C.uintptr_t {
	s := active.Load()
	if module == 0 || s == nil {
		return module
	}
	patches, err := redirectModules(s.ctx)
	if err != nil {
		log.E(s.ctx, "Hooking newly loaded modules: %v", err)
	} else if len(patches) > 0 {
		log.D(s.ctx, "Redirected %d imports after a library load", len(patches))
	}
	return module
}
