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

//go:build !windows

package vtable

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type mprotect struct{ restore int }

// SystemProtector returns a Protector backed by mprotect. As the previous
// protection of a page cannot be queried, pages are left read-only afterwards.
func SystemProtector() Protector { return mprotect{restore: unix.PROT_READ} }

func (m mprotect) Unprotect(addr, size uintptr) (func() error, error) {
	page := uintptr(unix.Getpagesize())
	start := addr &^ (page - 1)
	end := (addr + size + page - 1) &^ (page - 1)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(start)), end-start)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, err
	}
	return func() error { return unix.Mprotect(mem, m.restore) }, nil
}
