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

// Package hook holds the capture engine that runs inside the traced process:
// the event buffer, the GPU timestamp manager, the session controller and the
// Tracer that intercepted calls are routed through.
package hook

import "context"

// Device creates the GPU objects the tracer needs.
type Device interface {
	// CreateTimestampPool creates a pool of count timestamp query slots.
	CreateTimestampPool(count int) (QueryPool, error)
	// CreateReadbackBuffer creates a CPU readable buffer of size bytes.
	CreateReadbackBuffer(size int) (ReadbackBuffer, error)
	// CreateFence creates a fence with an initial value of zero.
	CreateFence() (Fence, error)
}

// QueryPool is a GPU timestamp query pool.
type QueryPool interface {
	Release()
}

// ReadbackBuffer is a GPU buffer that the CPU can map.
type ReadbackBuffer interface {
	// Map maps the first size bytes. The slice is valid until Unmap.
	Map(size int) ([]byte, error)
	Unmap()
	Release()
}

// CommandList is a GPU recording context.
type CommandList interface {
	// ID identifies the list in captured events.
	ID() uint64
	// EndTimestamp records the current GPU tick into slot.
	EndTimestamp(pool QueryPool, slot uint32)
	// ResolveTimestamps copies slots [0, count) into dst.
	ResolveTimestamps(pool QueryPool, count uint32, dst ReadbackBuffer)
}

// Queue is the GPU submission queue.
type Queue interface {
	// TimestampFrequency returns the queue's ticks per second.
	TimestampFrequency() (uint64, error)
	// Signal enqueues a signal of f to value after all submitted work.
	Signal(f Fence, value uint64) error
}

// Fence is a GPU to CPU synchronization primitive.
type Fence interface {
	Completed() uint64
	// Wait blocks until the fence reaches value or ctx is done.
	Wait(ctx context.Context, value uint64) error
	Release()
}
