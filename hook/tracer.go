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

package hook

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/fault"
	"github.com/tessapower/tattler/core/log"
)

// Tracer is the context object every intercepted call is routed through. It
// owns the controller, the timestamp manager and the queue and fence used to
// wait for each frame.
//
// Every method forwards the real call exactly once whatever the capture
// state, so tracing never changes what the application observes.
type Tracer struct {
	maxEvents  int
	controller *Controller

	setup      sync.Mutex
	timestamps atomic.Pointer[TimestampManager]
	fence      atomic.Value // fenceBox
	queue      atomic.Value // queueBox

	fenceValue atomic.Uint64
	bindings   *lru.Cache[uint64, *binding]
}

// maxBindings bounds the command lists with tracked state. Lists are never
// seen being released, so the least recently used are forgotten.
const maxBindings = 4096

type queueBox struct{ Queue }

type fenceBox struct{ Fence }

// ErrNoQueue is returned when a frame ends before any queue executed work.
const ErrNoQueue = fault.Const("No queue has executed work")

// binding is the state bound to a command list when an event is recorded.
type binding struct {
	pipeline     atomic.Uint64
	renderTarget atomic.Uint64
}

// NewTracer returns a Tracer that sizes its timestamp pool for maxEvents
// events per frame.
func NewTracer(c *Controller, maxEvents int) *Tracer {
	bindings, _ := lru.New[uint64, *binding](maxBindings)
	return &Tracer{maxEvents: maxEvents, controller: c, bindings: bindings}
}

// Controller returns the session controller.
func (t *Tracer) Controller() *Controller { return t.controller }

// Timestamps returns the timestamp manager, or nil before a device exists.
func (t *Tracer) Timestamps() *TimestampManager { return t.timestamps.Load() }

// OnDeviceCreated creates the timestamp pool and fence on the first device.
// Later devices are ignored.
func (t *Tracer) OnDeviceCreated(ctx context.Context, d Device) error {
	t.setup.Lock()
	defer t.setup.Unlock()
	if t.timestamps.Load() != nil {
		return nil
	}
	ts, err := NewTimestampManager(d, t.maxEvents)
	if err != nil {
		return log.Err(ctx, err, "Creating timestamp resources")
	}
	fence, err := d.CreateFence()
	if err != nil {
		ts.Release()
		return log.Err(ctx, err, "Creating frame fence")
	}
	t.fence.Store(fenceBox{fence})
	t.timestamps.Store(ts)
	log.I(ctx, "Timestamp pool ready with %d slots", ts.Capacity())
	return nil
}

func (t *Tracer) binding(id uint64) *binding {
	if b, ok := t.bindings.Get(id); ok {
		return b
	}
	b := &binding{}
	if prev, ok, _ := t.bindings.PeekOrAdd(id, b); ok {
		return prev
	}
	return b
}

// Record brackets call with a timestamp pair on cl and buffers an event with
// params p. If no session is active or the pool is exhausted call runs
// without instrumentation.
func (t *Tracer) Record(cl CommandList, p capture.Params, call func()) {
	ts := t.timestamps.Load()
	if ts == nil || !t.controller.IsCapturing() {
		call()
		return
	}
	pair, ok := ts.AllocatePair()
	if !ok {
		call()
		return
	}
	ts.InsertTimestamp(cl, pair.Begin)
	call()
	ts.InsertTimestamp(cl, pair.End)

	id := cl.ID()
	b := t.binding(id)
	t.controller.SubmitEvent(capture.Event{
		Begin:         uint64(pair.Begin),
		End:           uint64(pair.End),
		CommandList:   id,
		PipelineState: b.pipeline.Load(),
		RenderTarget:  b.renderTarget.Load(),
		Params:        p,
	})
}

// SetPipelineState notes the pipeline bound to a command list.
func (t *Tracer) SetPipelineState(list, pipeline uint64) {
	t.binding(list).pipeline.Store(pipeline)
}

// SetRenderTarget notes the first render target bound to a command list.
func (t *Tracer) SetRenderTarget(list, renderTarget uint64) {
	t.binding(list).renderTarget.Store(renderTarget)
}

// ResetCommandList clears the state bound to a command list.
func (t *Tracer) ResetCommandList(list uint64) {
	t.bindings.Remove(list)
}

// Close resolves the frame's timestamps on cl before the real close.
func (t *Tracer) Close(cl CommandList, call func()) {
	if ts := t.timestamps.Load(); ts != nil && t.controller.IsCapturing() {
		ts.ResolveAll(cl)
	}
	call()
}

// Execute remembers q as the queue frames are submitted on.
func (t *Tracer) Execute(q Queue, call func()) {
	t.queue.Store(queueBox{q})
	call()
}

// Queue returns the last queue that executed command lists.
func (t *Tracer) Queue() Queue {
	if b, ok := t.queue.Load().(queueBox); ok {
		return b.Queue
	}
	return nil
}

// Present ends the frame. While capturing it records the present, waits for
// the GPU to finish the frame and hands the resolved ticks to the
// controller. The timestamp pool is reset for the next frame either way.
func (t *Tracer) Present(ctx context.Context, p capture.Present, call func()) {
	ts := t.timestamps.Load()
	if ts != nil && t.controller.IsCapturing() {
		t.controller.SubmitEvent(capture.Event{Params: p})
		if err := t.finishFrame(ctx, ts); err != nil {
			log.W(ctx, "Dropping frame: %v", err)
			t.controller.DropFrame()
		}
	}
	if ts != nil {
		ts.Reset()
	}
	call()
}

func (t *Tracer) finishFrame(ctx context.Context, ts *TimestampManager) error {
	q := t.Queue()
	fence, _ := t.fence.Load().(fenceBox)
	if q == nil || fence.Fence == nil {
		return ErrNoQueue
	}
	value := t.fenceValue.Add(1)
	if err := q.Signal(fence.Fence, value); err != nil {
		return log.Err(ctx, err, "Signalling frame fence")
	}
	if err := fence.Wait(ctx, value); err != nil {
		return log.Err(ctx, err, "Waiting for frame fence")
	}
	ticks, err := ts.ReadResults()
	if err != nil {
		return err
	}
	freq, err := ts.Frequency(q)
	if err != nil {
		return err
	}
	t.controller.EndFrame(ticks, freq)
	return nil
}

// Release frees the GPU objects owned by the tracer.
func (t *Tracer) Release() {
	t.setup.Lock()
	defer t.setup.Unlock()
	if ts := t.timestamps.Swap(nil); ts != nil {
		ts.Release()
	}
	if f, ok := t.fence.Load().(fenceBox); ok && f.Fence != nil {
		f.Release()
		t.fence.Store(fenceBox{})
	}
}
