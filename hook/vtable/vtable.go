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

// Package vtable patches entries of native dispatch tables.
//
// A native object's first machine word points at an array of function
// pointers shared by every instance of the same concrete type. Patching an
// entry redirects that call for all of those instances.
package vtable

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Table is the address of a dispatch table.
type Table uintptr

const wordSize = unsafe.Sizeof(uintptr(0))

// Protector relaxes memory protection around a patch.
type Protector interface {
	// Unprotect makes [addr, addr+size) writable and returns a function that
	// restores the previous protection.
	Unprotect(addr, size uintptr) (restore func() error, err error)
}

// Patcher writes table entries through a Protector.
type Patcher struct {
	protect Protector
}

// NewPatcher returns a Patcher that uses p to make tables writable.
func NewPatcher(p Protector) *Patcher {
	return &Patcher{protect: p}
}

// Default patches memory using the operating system's page protection.
var Default = NewPatcher(SystemProtector())

// Of returns the dispatch table of the native object at obj.
func Of(obj uintptr) Table {
	return Table(*(*uintptr)(unsafe.Pointer(obj)))
}

// Entry returns the function pointer held in slot.
func (t Table) Entry(slot int) uintptr {
	return *(*uintptr)(unsafe.Pointer(t.slotAddr(slot)))
}

func (t Table) slotAddr(slot int) uintptr {
	return uintptr(t) + uintptr(slot)*wordSize
}

// Patch replaces slot of t with replacement and returns the previous entry.
func (p *Patcher) Patch(t Table, slot int, replacement uintptr) (uintptr, error) {
	if t == 0 {
		return 0, errors.New("Patching a nil table")
	}
	return p.PatchWord(t.slotAddr(slot), replacement)
}

// PatchWord replaces the machine word at addr with value and returns the
// previous value.
func (p *Patcher) PatchWord(addr, value uintptr) (uintptr, error) {
	restore, err := p.protect.Unprotect(addr, wordSize)
	if err != nil {
		return 0, errors.Wrapf(err, "Unprotecting 0x%x", addr)
	}
	word := (*uintptr)(unsafe.Pointer(addr))
	prev := *word
	*word = value
	if err := restore(); err != nil {
		return prev, errors.Wrapf(err, "Restoring protection of 0x%x", addr)
	}
	return prev, nil
}

// Patch replaces slot of t using the Default patcher.
func Patch(t Table, slot int, replacement uintptr) (uintptr, error) {
	return Default.Patch(t, slot, replacement)
}

// Writable is a Protector for memory that is already writable.
type Writable struct{}

// Unprotect implements Protector.
func (Writable) Unprotect(addr, size uintptr) (func() error, error) {
	return func() error { return nil }, nil
}
