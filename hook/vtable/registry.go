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

package vtable

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Kind identifies one hooked call site, such as a command list's
// DrawInstanced entry. Each kind has exactly one original function.
type Kind int

// Hook redirects one table slot.
type Hook struct {
	Kind        Kind
	Slot        int
	Replacement uintptr
}

type patch struct {
	table Table
	slot  int
	prev  uintptr
}

// Registry tracks the tables patched in this process and the original entry
// of every hook kind.
//
// Many objects of one concrete type share a table, so installation is
// idempotent per table rather than per object.
type Registry struct {
	patcher   *Patcher
	mu        sync.Mutex
	patched   map[Table]bool
	history   []patch
	originals sync.Map // Kind -> *atomic.Uintptr
}

// NewRegistry returns an empty registry that writes through p.
func NewRegistry(p *Patcher) *Registry {
	return &Registry{patcher: p, patched: map[Table]bool{}}
}

// Install patches every hook into the table of obj.
// It returns false without patching anything if the table was already
// patched by this registry.
func (r *Registry) Install(obj uintptr, hooks ...Hook) (bool, error) {
	if obj == 0 {
		return false, errors.New("Installing hooks on a nil object")
	}
	t := Of(obj)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.patched[t] {
		return false, nil
	}
	done := make([]patch, 0, len(hooks))
	for _, h := range hooks {
		prev, err := r.patcher.Patch(t, h.Slot, h.Replacement)
		if err != nil {
			// A failed restore of protection still leaves the slot written.
			if prev != 0 && prev != h.Replacement && t.Entry(h.Slot) == h.Replacement {
				done = append(done, patch{table: t, slot: h.Slot, prev: prev})
			}
			r.rollback(done)
			return false, errors.Wrapf(err, "Hooking kind %d at slot %d", h.Kind, h.Slot)
		}
		done = append(done, patch{table: t, slot: h.Slot, prev: prev})
	}
	for i, h := range hooks {
		if done[i].prev != h.Replacement {
			r.recordOriginal(h.Kind, done[i].prev)
		}
	}
	r.history = append(r.history, done...)
	r.patched[t] = true
	return true, nil
}

// rollback restores the slots of a partial install, newest first. The table
// is left unrecorded so a later Install starts from its real entries.
func (r *Registry) rollback(done []patch) {
	for i := len(done) - 1; i >= 0; i-- {
		p := done[i]
		r.patcher.Patch(p.table, p.slot, p.prev)
	}
}

// SetOriginal records fn as the original of k if k has none yet. It is used
// for function level redirections that do not go through a table.
func (r *Registry) SetOriginal(k Kind, fn uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordOriginal(k, fn)
}

func (r *Registry) recordOriginal(k Kind, fn uintptr) {
	v, _ := r.originals.LoadOrStore(k, &atomic.Uintptr{})
	v.(*atomic.Uintptr).CompareAndSwap(0, fn)
}

// Original returns the function that hooks of kind k forward to, or 0 if no
// hook of that kind has been installed.
func (r *Registry) Original(k Kind) uintptr {
	if v, ok := r.originals.Load(k); ok {
		return v.(*atomic.Uintptr).Load()
	}
	return 0
}

// IsPatched reports whether the table of obj has been patched.
func (r *Registry) IsPatched(obj uintptr) bool {
	t := Of(obj)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patched[t]
}

// Tables returns the number of patched tables.
func (r *Registry) Tables() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patched)
}

// RestoreAll writes back every patched entry, newest first, and forgets all
// patched tables. Originals are kept so late calls into wrappers still
// forward correctly.
func (r *Registry) RestoreAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for i := len(r.history) - 1; i >= 0; i-- {
		p := r.history[i]
		if _, err := r.patcher.Patch(p.table, p.slot, p.prev); err != nil && first == nil {
			first = err
		}
	}
	r.history = nil
	r.patched = map[Table]bool{}
	return first
}
