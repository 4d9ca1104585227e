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

package log

import (
	"sync"

	"github.com/tessapower/tattler/core/app/crash"
)

// Handler receives log messages.
type Handler interface {
	Handle(*Message)
	Close()
}

// NewHandler returns a Handler built from functions. close may be nil.
func NewHandler(handle func(*Message), close func()) Handler {
	return funcHandler{handle, close}
}

type funcHandler struct {
	handle func(*Message)
	close  func()
}

func (h funcHandler) Handle(m *Message) { h.handle(m) }

func (h funcHandler) Close() {
	if h.close != nil {
		h.close()
	}
}

// Channel returns a Handler that queues up to size messages for delivery to
// on a separate goroutine. Handle blocks only while the queue is full.
// Close delivers what is queued, then closes to.
func Channel(to Handler, size int) Handler {
	q := &queued{messages: make(chan *Message, size), done: make(chan struct{})}
	crash.Go(func() {
		defer close(q.done)
		defer to.Close()
		for m := range q.messages {
			to.Handle(m)
		}
	})
	return q
}

type queued struct {
	mu       sync.RWMutex
	closed   bool
	messages chan *Message
	done     chan struct{}
}

func (q *queued) Handle(m *Message) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.closed && m != nil {
		q.messages <- m
	}
}

func (q *queued) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.messages)
	}
	q.mu.Unlock()
	<-q.done
}
