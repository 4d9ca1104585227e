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
	"sync"

	"github.com/tessapower/tattler/capture"
)

// EventBuffer accumulates events from any number of recording threads until
// the controller drains them at the frame boundary. The lock is only held for
// the container operation itself.
type EventBuffer struct {
	mu     sync.Mutex
	events []capture.Event
}

// AddEvent appends e.
func (b *EventBuffer) AddEvent(e capture.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

// Flush returns every buffered event and leaves the buffer empty.
func (b *EventBuffer) Flush() []capture.Event {
	b.mu.Lock()
	out := b.events
	b.events = nil
	b.mu.Unlock()
	return out
}

// Reset discards every buffered event.
func (b *EventBuffer) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Size returns the number of buffered events.
func (b *EventBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
