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

package pipe

import (
	"io"
	"net"
	"sync"
)

// Conn is a framed message connection.
// Send may be called concurrently with Receive and with other calls to Send.
type Conn struct {
	rw      io.ReadWriteCloser
	writeMu sync.Mutex
}

// NewConn wraps the duplex stream rw.
func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{rw: rw}
}

// Send writes a single message.
func (c *Conn) Send(kind Kind, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteMessage(c.rw, kind, payload)
}

// Receive blocks until a full message has been read.
func (c *Conn) Receive() (Kind, []byte, error) {
	return ReadMessage(c.rw)
}

// ReceiveHeader blocks until a message header has been read. The caller must
// follow it with ReadPayload or Discard.
func (c *Conn) ReceiveHeader() (Header, error) {
	return ReadHeader(c.rw)
}

// ReadPayload reads the payload declared by h.
func (c *Conn) ReadPayload(h Header) ([]byte, error) {
	return ReadPayload(c.rw, h)
}

// Discard consumes the payload declared by h.
func (c *Conn) Discard(h Header) error {
	return SkipPayload(c.rw, h)
}

// Close closes the underlying stream, unblocking any pending Receive.
func (c *Conn) Close() error {
	return c.rw.Close()
}

// RemoteAddr returns the peer address if the stream is a net.Conn.
func (c *Conn) RemoteAddr() string {
	if nc, ok := c.rw.(net.Conn); ok && nc.RemoteAddr() != nil {
		return nc.RemoteAddr().String()
	}
	return ""
}
