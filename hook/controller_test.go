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
	"net"
	"testing"

	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/assert"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook"
	"github.com/tessapower/tattler/pipe"
)

func draw(begin, end uint64) capture.Event {
	return capture.Event{Begin: begin, End: end, Params: capture.Draw{VertexCount: 3, InstanceCount: 1}}
}

func TestEndFramePatchesSlots(t *testing.T) {
	ctx := log.Testing(t)
	clock := newFakeClock()
	c := hook.NewController(hook.WithClock(clock.Now))
	c.StartCapture(ctx)
	c.SubmitEvent(draw(0, 1))
	c.SubmitEvent(draw(2, 7))
	c.SubmitEvent(capture.Event{Params: capture.Present{SyncInterval: 1}})
	c.EndFrame([]uint64{100, 150, 200, 260}, 1000)

	s := c.Snapshot()
	if !assert.For(ctx, "frames").ThatSlice(s.Frames).IsLength(1) {
		return
	}
	f := s.Frames[0]
	assert.For(ctx, "number").That(f.Number).Equals(uint32(0))
	assert.For(ctx, "frequency").That(f.GPUFrequency).Equals(uint64(1000))
	assert.For(ctx, "cpu start").That(f.CPUStartMicros).Equals(uint64(1000000))
	assert.For(ctx, "cpu end").That(f.CPUEndMicros).Equals(uint64(1016667))
	assert.For(ctx, "events").ThatSlice(f.Events).IsLength(3)

	assert.For(ctx, "begin").That(f.Events[0].Begin).Equals(uint64(100))
	assert.For(ctx, "end").That(f.Events[0].End).Equals(uint64(150))
	assert.For(ctx, "patched begin").That(f.Events[1].Begin).Equals(uint64(200))
	assert.For(ctx, "out of range end").That(f.Events[1].End).Equals(uint64(7))
	assert.For(ctx, "present").That(f.Events[2].Begin).Equals(uint64(150))
	for i, e := range f.Events {
		assert.For(ctx, "frame index %d", i).That(e.FrameIndex).Equals(uint32(0))
		assert.For(ctx, "event index %d", i).That(e.EventIndex).Equals(uint32(i))
	}
	assert.For(ctx, "buffer drained").That(c.Buffered()).Equals(0)
}

func TestFrameNumbersAreConsecutive(t *testing.T) {
	ctx := log.Testing(t)
	c := hook.NewController(hook.WithClock(newFakeClock().Now))
	c.StartCapture(ctx)
	for i := 0; i < 3; i++ {
		c.SubmitEvent(draw(0, 1))
		c.EndFrame([]uint64{10, 20}, 1000)
	}
	s := c.Snapshot()
	assert.For(ctx, "frames").ThatSlice(s.Frames).IsLength(3)
	for i, f := range s.Frames {
		assert.For(ctx, "number %d", i).That(f.Number).Equals(uint32(i))
		if i > 0 {
			assert.For(ctx, "rebased %d", i).That(f.CPUStartMicros).Equals(s.Frames[i-1].CPUEndMicros)
		}
	}
}

func TestDropFrameKeepsNumbering(t *testing.T) {
	ctx := log.Testing(t)
	c := hook.NewController(hook.WithClock(newFakeClock().Now))
	c.StartCapture(ctx)
	c.EndFrame(nil, 1000)
	c.SubmitEvent(draw(0, 1))
	c.DropFrame()
	c.EndFrame(nil, 1000)
	s := c.Snapshot()
	if !assert.For(ctx, "frames").ThatSlice(s.Frames).IsLength(2) {
		return
	}
	assert.For(ctx, "number").That(s.Frames[1].Number).Equals(uint32(1))
	assert.For(ctx, "dropped events").ThatSlice(s.Frames[1].Events).IsEmpty()
}

func TestIdleEndFrameAppendsNothing(t *testing.T) {
	ctx := log.Testing(t)
	c := hook.NewController()
	c.SubmitEvent(draw(0, 1))
	c.EndFrame([]uint64{1, 2}, 1000)
	assert.For(ctx, "frames").ThatSlice(c.Snapshot().Frames).IsEmpty()
	assert.For(ctx, "buffer").That(c.Buffered()).Equals(0)
	c.StageTexture(capture.StagedTexture{Width: 1})
	assert.For(ctx, "textures").ThatSlice(c.Snapshot().StagedTextures).IsEmpty()
}

func TestStartCaptureResetsSession(t *testing.T) {
	ctx := log.Testing(t)
	c := hook.NewController(hook.WithClock(newFakeClock().Now))
	c.StartCapture(ctx)
	first := c.Session()
	c.EndFrame(nil, 1)
	c.StageTexture(capture.StagedTexture{Width: 4, Height: 4, Pixels: make([]byte, 64)})
	c.SubmitEvent(draw(0, 1))
	c.StartCapture(ctx)
	s := c.Snapshot()
	assert.For(ctx, "frames").ThatSlice(s.Frames).IsEmpty()
	assert.For(ctx, "textures").ThatSlice(s.StagedTextures).IsEmpty()
	assert.For(ctx, "buffer").That(c.Buffered()).Equals(0)
	assert.For(ctx, "session").That(c.Session()).NotEquals(first)
}

func TestFlushFrameWhileDisconnected(t *testing.T) {
	ctx := log.Testing(t)
	c := hook.NewController()
	c.StartCapture(ctx)
	c.EndFrame(nil, 1)
	assert.For(ctx, "flush").ThatError(c.FlushFrame(ctx)).Succeeded()
	assert.For(ctx, "kept").ThatSlice(c.Snapshot().Frames).IsLength(1)
	assert.For(ctx, "run").ThatError(c.Run(ctx)).Failed()
}

func TestSessionOverChannel(t *testing.T) {
	ctx := log.Testing(t)
	viewerEnd, hookEnd := net.Pipe()
	viewer := pipe.NewConn(viewerEnd)
	defer viewer.Close()

	c := hook.NewController(hook.WithClock(newFakeClock().Now))
	c.Attach(pipe.NewConn(hookEnd))
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	assert.For(ctx, "connected").That(c.IsConnected()).Equals(true)

	assert.For(ctx, "ignored").ThatError(viewer.Send(pipe.CaptureData, []byte{1, 2, 3})).Succeeded()
	assert.For(ctx, "start").ThatError(viewer.Send(pipe.StartCapture, nil)).Succeeded()
	waitFor(t, "capturing", c.IsCapturing)

	c.SubmitEvent(draw(0, 1))
	c.EndFrame([]uint64{5000, 5600}, 240000000)

	stopped := make(chan error, 1)
	go func() { stopped <- viewer.Send(pipe.StopCapture, nil) }()
	kind, payload, err := viewer.Receive()
	assert.For(ctx, "receive").ThatError(err).Succeeded()
	assert.For(ctx, "stop sent").ThatError(<-stopped).Succeeded()
	assert.For(ctx, "kind").That(kind).Equals(pipe.CaptureData)
	assert.For(ctx, "capturing").That(c.IsCapturing()).Equals(false)

	s, err := capture.Deserialize(payload)
	if !assert.For(ctx, "decode").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "frames").ThatSlice(s.Frames).IsLength(1)
	assert.For(ctx, "begin").That(s.Frames[0].Events[0].Begin).Equals(uint64(5000))
	assert.For(ctx, "duration").That(s.DurationSeconds > 0).Equals(true)
	assert.For(ctx, "cleared").ThatSlice(c.Snapshot().Frames).IsEmpty()

	viewer.Close()
	assert.For(ctx, "run").ThatError(<-done).Failed()
	assert.For(ctx, "disconnected").That(c.IsConnected()).Equals(false)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx := log.Testing(t)
	viewerEnd, hookEnd := net.Pipe()
	defer viewerEnd.Close()
	c := hook.NewController()
	c.Attach(pipe.NewConn(hookEnd))
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(cctx) }()
	cancel()
	assert.For(ctx, "run").ThatError(<-done).Equals(context.Canceled)
	assert.For(ctx, "disconnected").That(c.IsConnected()).Equals(false)
}

func TestVersionMismatchEndsSession(t *testing.T) {
	ctx := log.Testing(t)
	viewerEnd, hookEnd := net.Pipe()
	defer viewerEnd.Close()
	c := hook.NewController()
	c.Attach(pipe.NewConn(hookEnd))
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	viewerEnd.Write([]byte{9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.For(ctx, "run").ThatError(<-done).HasCause(pipe.ErrVersion)
}
