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

package hook_test

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/hook"
)

// fakeGPU executes command list operations immediately, advancing its tick
// counter by 10 for every timestamp written.
type fakeGPU struct {
	mu       sync.Mutex
	now      uint64
	slots    []uint64
	readback []byte
	freq     uint64
	resolves int
	failPool bool
	failMap  bool
}

func newFakeGPU() *fakeGPU { return &fakeGPU{now: 1000, freq: 240000000} }

type fakePool struct{ released *bool }

func (p fakePool) Release() { *p.released = true }

type fakeReadback struct{ gpu *fakeGPU }

func (r fakeReadback) Map(size int) ([]byte, error) {
	r.gpu.mu.Lock()
	defer r.gpu.mu.Unlock()
	if r.gpu.failMap {
		return nil, errors.New("map failed")
	}
	return append([]byte(nil), r.gpu.readback[:size]...), nil
}
func (fakeReadback) Unmap()   {}
func (fakeReadback) Release() {}

func (g *fakeGPU) CreateTimestampPool(count int) (hook.QueryPool, error) {
	if g.failPool {
		return nil, errors.New("out of query heaps")
	}
	g.slots = make([]uint64, count)
	released := false
	return fakePool{&released}, nil
}

func (g *fakeGPU) CreateReadbackBuffer(size int) (hook.ReadbackBuffer, error) {
	g.readback = make([]byte, size)
	return fakeReadback{g}, nil
}

func (g *fakeGPU) CreateFence() (hook.Fence, error) {
	return &fakeFence{}, nil
}

type fakeList struct {
	gpu *fakeGPU
	id  uint64
}

func (l fakeList) ID() uint64 { return l.id }

func (l fakeList) EndTimestamp(pool hook.QueryPool, slot uint32) {
	l.gpu.mu.Lock()
	defer l.gpu.mu.Unlock()
	l.gpu.now += 10
	l.gpu.slots[slot] = l.gpu.now
}

func (l fakeList) ResolveTimestamps(pool hook.QueryPool, count uint32, dst hook.ReadbackBuffer) {
	l.gpu.mu.Lock()
	defer l.gpu.mu.Unlock()
	l.gpu.resolves++
	for i := uint32(0); i < count; i++ {
		binary.LittleEndian.PutUint64(l.gpu.readback[i*8:], l.gpu.slots[i])
	}
}

type fakeQueue struct{ gpu *fakeGPU }

func (q fakeQueue) TimestampFrequency() (uint64, error) { return q.gpu.freq, nil }

func (q fakeQueue) Signal(f hook.Fence, value uint64) error {
	f.(*fakeFence).signal(value)
	return nil
}

type fakeFence struct {
	mu    sync.Mutex
	value uint64
}

func (f *fakeFence) signal(v uint64) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

func (f *fakeFence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *fakeFence) Wait(ctx context.Context, value uint64) error {
	if f.Completed() >= value {
		return nil
	}
	return errors.New("fence never signalled")
}

func (f *fakeFence) Release() {}

// fakeClock advances by step every time it is read.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMicro(1000000), step: 16667 * time.Microsecond}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
