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
	"bytes"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/data/endian"
	"github.com/tessapower/tattler/core/os/device"
)

const tickSize = 8

// Pair is the begin and end slot of one traced call.
type Pair struct {
	Begin uint32
	End   uint32
}

// TimestampManager owns a fixed pool of GPU timestamp slots and the buffer
// they are resolved into. Slots are bump allocated and only ever released
// all at once by Reset.
type TimestampManager struct {
	pool     QueryPool
	readback ReadbackBuffer
	capacity uint32
	next     atomic.Uint32
}

// NewTimestampManager creates a pool of 2*maxEvents slots on d.
func NewTimestampManager(d Device, maxEvents int) (*TimestampManager, error) {
	if maxEvents <= 0 {
		return nil, errors.Errorf("Invalid event capacity %d", maxEvents)
	}
	capacity := 2 * maxEvents
	pool, err := d.CreateTimestampPool(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "Creating timestamp pool")
	}
	readback, err := d.CreateReadbackBuffer(capacity * tickSize)
	if err != nil {
		pool.Release()
		return nil, errors.Wrap(err, "Creating timestamp readback buffer")
	}
	return &TimestampManager{pool: pool, readback: readback, capacity: uint32(capacity)}, nil
}

// AllocatePair reserves two consecutive slots. It returns false once the pool
// is exhausted for the current frame.
func (m *TimestampManager) AllocatePair() (Pair, bool) {
	for {
		cur := m.next.Load()
		if cur+2 > m.capacity {
			return Pair{}, false
		}
		if m.next.CompareAndSwap(cur, cur+2) {
			return Pair{Begin: cur, End: cur + 1}, true
		}
	}
}

// InsertTimestamp records the current GPU tick into slot on cl.
func (m *TimestampManager) InsertTimestamp(cl CommandList, slot uint32) {
	cl.EndTimestamp(m.pool, slot)
}

// ResolveAll copies every slot used so far into the readback buffer.
// It is issued once per command list, right before the list is closed.
func (m *TimestampManager) ResolveAll(cl CommandList) {
	if n := m.Used(); n > 0 {
		cl.ResolveTimestamps(m.pool, n, m.readback)
	}
}

// ReadResults returns the resolved tick of every used slot, indexed by slot.
// The GPU must have completed all resolved work.
func (m *TimestampManager) ReadResults() ([]uint64, error) {
	n := int(m.Used())
	if n == 0 {
		return nil, nil
	}
	data, err := m.readback.Map(n * tickSize)
	if err != nil {
		return nil, errors.Wrap(err, "Mapping timestamp readback")
	}
	defer m.readback.Unmap()
	if len(data) < n*tickSize {
		return nil, errors.Errorf("Readback mapped %d bytes, need %d", len(data), n*tickSize)
	}
	r := endian.Reader(bytes.NewReader(data), device.HostEndian())
	ticks := make([]uint64, n)
	for i := range ticks {
		ticks[i] = r.Uint64()
	}
	return ticks, r.Error()
}

// Frequency returns the tick frequency of q.
func (m *TimestampManager) Frequency(q Queue) (uint64, error) {
	f, err := q.TimestampFrequency()
	if err != nil {
		return 0, errors.Wrap(err, "Querying timestamp frequency")
	}
	return f, nil
}

// Reset makes the whole pool available again.
func (m *TimestampManager) Reset() {
	m.next.Store(0)
}

// Used returns the number of allocated slots.
func (m *TimestampManager) Used() uint32 {
	return m.next.Load()
}

// Capacity returns the number of slots in the pool.
func (m *TimestampManager) Capacity() uint32 {
	return m.capacity
}

// Release frees the GPU objects.
func (m *TimestampManager) Release() {
	m.readback.Release()
	m.pool.Release()
}
