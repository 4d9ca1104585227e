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
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/pipe"
)

// Controller is the capture session state machine. It is Idle until the
// viewer sends StartCapture and Capturing until StopCapture arrives or the
// channel fails.
type Controller struct {
	buffer EventBuffer
	clock  func() time.Time

	capturing atomic.Bool
	connected atomic.Bool
	conn      atomic.Pointer[pipe.Conn]

	// mu guards the session between the receive loop and the present thread.
	mu           sync.Mutex
	snapshot     capture.Snapshot
	frame        uint32
	sessionStart time.Time
	frameStart   time.Time
	session      uuid.UUID
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for CPU timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// NewController returns an idle, disconnected controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{clock: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsCapturing reports whether a session is active. It never blocks.
func (c *Controller) IsCapturing() bool { return c.capturing.Load() }

// IsConnected reports whether the viewer channel is up. It never blocks.
func (c *Controller) IsConnected() bool { return c.connected.Load() }

// Session returns the id of the current or last session.
func (c *Controller) Session() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Attach makes conn the viewer channel.
func (c *Controller) Attach(conn *pipe.Conn) {
	c.conn.Store(conn)
	c.connected.Store(true)
}

// Serve connects to the viewer on the named channel and runs the receive
// loop until the channel fails or ctx is cancelled.
func (c *Controller) Serve(ctx context.Context, name string, timeout time.Duration) error {
	conn, err := pipe.Dial(ctx, name, timeout)
	if err != nil {
		return err
	}
	log.I(ctx, "Connected to viewer at %s", pipe.Address(name))
	c.Attach(conn)
	return c.Run(ctx)
}

// Run reads commands from the attached channel until a read fails or ctx is
// cancelled. Either way the session ends and the channel is closed.
func (c *Controller) Run(ctx context.Context) error {
	conn := c.conn.Load()
	if conn == nil {
		return errors.New("No viewer channel attached")
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer c.disconnect(ctx)

	for {
		h, err := conn.ReceiveHeader()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "Receiving command")
		}
		switch h.Kind {
		case pipe.StartCapture:
			if err := conn.Discard(h); err != nil {
				return err
			}
			c.StartCapture(ctx)
		case pipe.StopCapture:
			if err := conn.Discard(h); err != nil {
				return err
			}
			if err := c.StopCapture(ctx); err != nil {
				return err
			}
		default:
			log.W(ctx, "Ignoring %v message with %d byte payload", h.Kind, h.PayloadSize)
			if err := conn.Discard(h); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) disconnect(ctx context.Context) {
	c.capturing.Store(false)
	c.connected.Store(false)
	if conn := c.conn.Swap(nil); conn != nil {
		conn.Close()
	}
	c.buffer.Reset()
	log.I(ctx, "Viewer channel closed")
}

// StartCapture begins a new session, discarding anything recorded before.
func (c *Controller) StartCapture(ctx context.Context) {
	c.mu.Lock()
	now := c.clock()
	c.snapshot = capture.Snapshot{}
	c.frame = 0
	c.sessionStart = now
	c.frameStart = now
	c.session = uuid.New()
	c.buffer.Reset()
	c.capturing.Store(true)
	session := c.session
	c.mu.Unlock()
	log.I(log.V{"session": session}.Bind(ctx), "Capture started")
}

// StopCapture ends the session and sends everything captured to the viewer.
func (c *Controller) StopCapture(ctx context.Context) error {
	c.mu.Lock()
	c.capturing.Store(false)
	session := c.session
	c.mu.Unlock()
	ctx = log.V{"session": session}.Bind(ctx)
	log.I(ctx, "Capture stopped")
	return c.FlushFrame(ctx)
}

// SubmitEvent buffers e for the current frame. Callers only submit while
// IsCapturing is true.
func (c *Controller) SubmitEvent(e capture.Event) {
	c.buffer.AddEvent(e)
}

// Buffered returns the number of events waiting for the frame boundary.
func (c *Controller) Buffered() int {
	return c.buffer.Size()
}

// EndFrame finalizes the frame at a present boundary. The GPU must have
// completed the frame's work and ticks must hold the resolved slot values.
//
// Slot indices in range are replaced by their ticks; anything else is left
// as is. Present events are not bracketed by slots and are placed at the
// frame's last tick.
func (c *Controller) EndFrame(ticks []uint64, frequency uint64) {
	events := c.buffer.Flush()
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capturing.Load() {
		return
	}
	var last uint64
	for i := range events {
		e := &events[i]
		if e.Kind() == capture.KindPresent {
			continue
		}
		if e.Begin < uint64(len(ticks)) {
			e.Begin = ticks[e.Begin]
		}
		if e.End < uint64(len(ticks)) {
			e.End = ticks[e.End]
		}
		if e.End > last {
			last = e.End
		}
	}
	for i := range events {
		e := &events[i]
		if e.Kind() == capture.KindPresent {
			e.Begin, e.End = last, last
		}
		e.FrameIndex = c.frame
		e.EventIndex = uint32(i)
	}
	c.snapshot.Frames = append(c.snapshot.Frames, capture.Frame{
		Number:         c.frame,
		CPUStartMicros: micros(c.frameStart),
		CPUEndMicros:   micros(now),
		GPUFrequency:   frequency,
		Events:         events,
	})
	c.frame++
	c.frameStart = now
}

// DropFrame discards the buffered events of a frame that could not be
// finalized. The frame counter does not advance.
func (c *Controller) DropFrame() {
	c.buffer.Reset()
	now := c.clock()
	c.mu.Lock()
	c.frameStart = now
	c.mu.Unlock()
}

// StageTexture adds a render target readback to the session.
func (c *Controller) StageTexture(t capture.StagedTexture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capturing.Load() {
		c.snapshot.StagedTextures = append(c.snapshot.StagedTextures, t)
	}
}

// Snapshot returns a copy of the session recorded so far.
func (c *Controller) Snapshot() capture.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshot
	s.Frames = append([]capture.Frame(nil), s.Frames...)
	s.StagedTextures = append([]capture.StagedTexture(nil), s.StagedTextures...)
	return s
}

// FlushFrame sends the session to the viewer as one CaptureData message and
// clears it. It does nothing if no viewer is connected.
func (c *Controller) FlushFrame(ctx context.Context) error {
	conn := c.conn.Load()
	if !c.connected.Load() || conn == nil {
		return nil
	}
	c.mu.Lock()
	s := c.snapshot
	s.DurationSeconds = c.clock().Sub(c.sessionStart).Seconds()
	c.snapshot = capture.Snapshot{}
	c.mu.Unlock()

	data, err := capture.Serialize(&s)
	if err != nil {
		return log.Err(ctx, err, "Serializing capture")
	}
	if err := conn.Send(pipe.CaptureData, data); err != nil {
		return log.Err(ctx, err, "Sending capture")
	}
	log.I(ctx, "Sent %d frames, %d events, %d bytes", len(s.Frames), s.EventCount(), len(data))
	return nil
}

func micros(t time.Time) uint64 {
	return uint64(t.UnixMicro())
}
