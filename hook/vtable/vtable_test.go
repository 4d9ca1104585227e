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

package vtable_test

import (
	"errors"
	"runtime"
	"testing"
	"unsafe"

	"github.com/tessapower/tattler/core/assert"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook/vtable"
)

// fakeType is a dispatch table in Go memory whose entries are ids into funcs.
type fakeType struct {
	table []uintptr
	funcs map[uintptr]func()
}

type fakeObject struct {
	vtbl uintptr
}

func newFakeType(entries int) *fakeType {
	ft := &fakeType{table: make([]uintptr, entries), funcs: map[uintptr]func(){}}
	return ft
}

func (ft *fakeType) define(slot int, id uintptr, f func()) {
	ft.table[slot] = id
	ft.funcs[id] = f
}

func (ft *fakeType) newObject() *fakeObject {
	return &fakeObject{vtbl: uintptr(unsafe.Pointer(&ft.table[0]))}
}

func addr(o *fakeObject) uintptr { return uintptr(unsafe.Pointer(o)) }

// call invokes slot on o through its table, like a native caller would.
func (ft *fakeType) call(o *fakeObject, slot int) {
	fn := vtable.Of(addr(o)).Entry(slot)
	ft.funcs[fn]()
	runtime.KeepAlive(o)
}

const (
	drawID    = uintptr(0x1000)
	wrapperID = uintptr(0x2000)
	kindDraw  = vtable.Kind(1)
	slotDraw  = 2
)

func TestOfAndPatch(t *testing.T) {
	ctx := log.Testing(t)
	ft := newFakeType(4)
	ft.define(slotDraw, drawID, func() {})
	o := ft.newObject()
	tbl := vtable.Of(addr(o))
	assert.For(ctx, "table").That(uintptr(tbl)).Equals(uintptr(unsafe.Pointer(&ft.table[0])))

	p := vtable.NewPatcher(vtable.Writable{})
	prev, err := p.Patch(tbl, slotDraw, wrapperID)
	assert.For(ctx, "patch").ThatError(err).Succeeded()
	assert.For(ctx, "prev").That(prev).Equals(drawID)
	assert.For(ctx, "entry").That(tbl.Entry(slotDraw)).Equals(wrapperID)
	assert.For(ctx, "slot").That(ft.table[slotDraw]).Equals(wrapperID)

	_, err = p.Patch(0, 0, wrapperID)
	assert.For(ctx, "nil table").ThatError(err).Failed()
}

func TestInstallIsIdempotentPerTable(t *testing.T) {
	ctx := log.Testing(t)
	reg := vtable.NewRegistry(vtable.NewPatcher(vtable.Writable{}))
	ft := newFakeType(4)
	draws, wraps := 0, 0
	ft.define(slotDraw, drawID, func() { draws++ })
	ft.funcs[wrapperID] = func() {
		wraps++
		ft.funcs[reg.Original(kindDraw)]()
	}
	hook := vtable.Hook{Kind: kindDraw, Slot: slotDraw, Replacement: wrapperID}

	a, b := ft.newObject(), ft.newObject()
	installed, err := reg.Install(addr(a), hook)
	assert.For(ctx, "first").ThatError(err).Succeeded()
	assert.For(ctx, "first installed").That(installed).Equals(true)
	installed, err = reg.Install(addr(a), hook)
	assert.For(ctx, "again").ThatError(err).Succeeded()
	assert.For(ctx, "again installed").That(installed).Equals(false)
	installed, _ = reg.Install(addr(b), hook)
	assert.For(ctx, "shared table installed").That(installed).Equals(false)

	ft.call(a, slotDraw)
	ft.call(b, slotDraw)
	assert.For(ctx, "wrapper calls").That(wraps).Equals(2)
	assert.For(ctx, "original calls").That(draws).Equals(2)
	assert.For(ctx, "original").That(reg.Original(kindDraw)).Equals(drawID)
	assert.For(ctx, "tables").That(reg.Tables()).Equals(1)
	assert.For(ctx, "patched").That(reg.IsPatched(addr(b))).Equals(true)
}

func TestOriginalRecordedOncePerKind(t *testing.T) {
	ctx := log.Testing(t)
	reg := vtable.NewRegistry(vtable.NewPatcher(vtable.Writable{}))
	first, second := newFakeType(4), newFakeType(4)
	first.define(slotDraw, drawID, func() {})
	second.define(slotDraw, drawID+1, func() {})
	hook := vtable.Hook{Kind: kindDraw, Slot: slotDraw, Replacement: wrapperID}
	reg.Install(addr(first.newObject()), hook)
	reg.Install(addr(second.newObject()), hook)
	assert.For(ctx, "original").That(reg.Original(kindDraw)).Equals(drawID)
	assert.For(ctx, "second patched").That(second.table[slotDraw]).Equals(wrapperID)
	assert.For(ctx, "unknown kind").That(reg.Original(vtable.Kind(99))).Equals(uintptr(0))

	reg.SetOriginal(kindDraw, 0x9999)
	assert.For(ctx, "kept").That(reg.Original(kindDraw)).Equals(drawID)
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestRestoreAll(t *testing.T) {
	ctx := log.Testing(t)
	reg := vtable.NewRegistry(vtable.NewPatcher(vtable.Writable{}))
	ft := newFakeType(4)
	ft.define(slotDraw, drawID, func() {})
	o := ft.newObject()
	reg.Install(addr(o), vtable.Hook{Kind: kindDraw, Slot: slotDraw, Replacement: wrapperID})
	assert.For(ctx, "restore").ThatError(reg.RestoreAll()).Succeeded()
	assert.For(ctx, "entry").That(ft.table[slotDraw]).Equals(drawID)
	assert.For(ctx, "tables").That(reg.Tables()).Equals(0)
	installed, _ := reg.Install(addr(o), vtable.Hook{Kind: kindDraw, Slot: slotDraw, Replacement: wrapperID})
	assert.For(ctx, "reinstall").That(installed).Equals(true)
	runtime.KeepAlive(o)
}

// flakyProtector refuses the nth unprotect call, counting from one.
type flakyProtector struct{ calls, fail int }

func (p *flakyProtector) Unprotect(addr, size uintptr) (func() error, error) {
	p.calls++
	if p.calls == p.fail {
		return nil, errors.New("page is read only")
	}
	return func() error { return nil }, nil
}

func TestFailedInstallRollsBack(t *testing.T) {
	ctx := log.Testing(t)
	reg := vtable.NewRegistry(vtable.NewPatcher(&flakyProtector{fail: 2}))
	ft := newFakeType(4)
	ft.define(1, drawID, func() {})
	ft.define(slotDraw, drawID+1, func() {})
	o := ft.newObject()
	hooks := []vtable.Hook{
		{Kind: kindDraw, Slot: 1, Replacement: wrapperID},
		{Kind: kindDraw + 1, Slot: slotDraw, Replacement: wrapperID + 1},
	}

	installed, err := reg.Install(addr(o), hooks...)
	assert.For(ctx, "failed").ThatError(err).Failed()
	assert.For(ctx, "installed").That(installed).Equals(false)
	assert.For(ctx, "first slot").That(ft.table[1]).Equals(drawID)
	assert.For(ctx, "second slot").That(ft.table[slotDraw]).Equals(drawID + 1)
	assert.For(ctx, "patched").That(reg.IsPatched(addr(o))).Equals(false)
	assert.For(ctx, "no original").That(reg.Original(kindDraw)).Equals(uintptr(0))

	installed, err = reg.Install(addr(o), hooks...)
	assert.For(ctx, "retry").ThatError(err).Succeeded()
	assert.For(ctx, "retry installed").That(installed).Equals(true)
	assert.For(ctx, "original").That(reg.Original(kindDraw)).Equals(drawID)
	assert.For(ctx, "second original").That(reg.Original(kindDraw + 1)).Equals(drawID + 1)

	assert.For(ctx, "restore").ThatError(reg.RestoreAll()).Succeeded()
	assert.For(ctx, "restored").That(ft.table[1]).Equals(drawID)
	runtime.KeepAlive(o)
}
