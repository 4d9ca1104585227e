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

// Package client is the viewer side of a capture session. It owns the
// server end of the channel, sends capture commands to the hook and decodes
// the captures it sends back.
package client

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/tessapower/tattler/capture"
	"github.com/tessapower/tattler/core/app/crash"
	"github.com/tessapower/tattler/core/event/task"
	"github.com/tessapower/tattler/core/fault"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/pipe"
)

// ErrNotConnected is returned when a command is sent with no hook attached.
const ErrNotConnected = fault.Const("No hook connected")

// snapshotBacklog is the number of decoded captures held for Snapshots
// readers before older ones are dropped.
const snapshotBacklog = 4

// Client accepts hook connections on a named channel, one at a time.
type Client struct {
	listener net.Listener
	conn     atomic.Pointer[pipe.Conn]

	connected task.Signal
	fire      task.Task

	mu        sync.Mutex
	latest    *capture.Snapshot
	snapshots chan capture.Snapshot

	cancel  context.CancelFunc
	stopped task.Signal
	err     error // Set before stopped fires.
}

// Listen creates the channel called name and starts accepting hooks in the
// background.
func Listen(ctx context.Context, name string) (*Client, error) {
	l, err := pipe.Listen(ctx, name)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		listener:  l,
		snapshots: make(chan capture.Snapshot, snapshotBacklog),
		cancel:    cancel,
	}
	c.connected, c.fire = task.NewSignal()
	stopped, fire := task.NewSignal()
	c.stopped = stopped
	crash.Go(func() {
		defer fire(ctx)
		defer close(c.snapshots)
		c.err = c.serve(ctx)
	})
	return c, nil
}

// serve runs even when ctx is already stopped, so the deferred close of
// snapshots in Listen always happens.
func (c *Client) serve(ctx context.Context) error {
	for {
		conn, err := pipe.Accept(ctx, c.listener)
		if err != nil {
			if task.Stopped(ctx) {
				return nil
			}
			return log.Err(ctx, err, "Accepting hook")
		}
		log.I(ctx, "Hook connected")
		c.conn.Store(conn)
		c.fire(ctx)
		err = c.receive(ctx, conn)
		c.conn.Store(nil)
		conn.Close()
		if task.Stopped(ctx) {
			return nil
		}
		log.I(ctx, "Hook disconnected: %v", err)
	}
}

func (c *Client) receive(ctx context.Context, conn *pipe.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-task.ShouldStop(ctx):
			conn.Close()
		case <-stop:
		}
	}()
	for {
		h, err := conn.ReceiveHeader()
		if err != nil {
			return err
		}
		if h.Kind != pipe.CaptureData {
			log.W(ctx, "Ignoring %v message with %d byte payload", h.Kind, h.PayloadSize)
			if err := conn.Discard(h); err != nil {
				return err
			}
			continue
		}
		data, err := conn.ReadPayload(h)
		if err != nil {
			return err
		}
		s, err := capture.Deserialize(data)
		if err != nil {
			log.W(ctx, "Discarding malformed capture of %d bytes: %v", len(data), err)
			continue
		}
		log.I(ctx, "Received %d frames, %d events", len(s.Frames), s.EventCount())
		c.publish(ctx, s)
	}
}

func (c *Client) publish(ctx context.Context, s *capture.Snapshot) {
	c.mu.Lock()
	c.latest = s
	c.mu.Unlock()
	select {
	case c.snapshots <- *s:
	default:
		log.W(ctx, "Capture backlog full, dropping oldest")
		select {
		case <-c.snapshots:
		default:
		}
		c.snapshots <- *s
	}
}

// IsConnected reports whether a hook is attached.
func (c *Client) IsConnected() bool {
	return c.conn.Load() != nil
}

// WaitForConnection blocks until the first hook connects or ctx is done.
func (c *Client) WaitForConnection(ctx context.Context) bool {
	return c.connected.Wait(ctx)
}

func (c *Client) send(ctx context.Context, kind pipe.Kind) error {
	conn := c.conn.Load()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Send(kind, nil); err != nil {
		return log.Errf(ctx, err, "Sending %v", kind)
	}
	return nil
}

// SendStartCapture asks the hook to begin a capture session.
func (c *Client) SendStartCapture(ctx context.Context) error {
	return c.send(ctx, pipe.StartCapture)
}

// SendStopCapture asks the hook to end the session and send its capture.
func (c *Client) SendStopCapture(ctx context.Context) error {
	return c.send(ctx, pipe.StopCapture)
}

// Snapshot returns the most recent fully decoded capture.
func (c *Client) Snapshot() (*capture.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.latest != nil
}

// Snapshots delivers every decoded capture. It is closed by Stop.
func (c *Client) Snapshots() <-chan capture.Snapshot {
	return c.snapshots
}

// Stop closes the channel, unblocking a pending accept or receive, and
// waits for the background loop to finish. Snapshots is closed once Stop
// returns nil.
func (c *Client) Stop(ctx context.Context) error {
	c.cancel()
	c.listener.Close()
	if conn := c.conn.Load(); conn != nil {
		conn.Close()
	}
	if !c.stopped.Wait(ctx) {
		return task.StopReason(ctx)
	}
	return c.err
}
