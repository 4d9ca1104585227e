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
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tessapower/tattler/core/assert"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/hook"
)

func TestAllocatePairExhaustion(t *testing.T) {
	ctx := log.Testing(t)
	ts, err := hook.NewTimestampManager(newFakeGPU(), 3)
	if !assert.For(ctx, "create").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "capacity").That(ts.Capacity()).Equals(uint32(6))
	for i := uint32(0); i < 3; i++ {
		p, ok := ts.AllocatePair()
		assert.For(ctx, "ok %d", i).That(ok).Equals(true)
		assert.For(ctx, "pair %d", i).That(p).Equals(hook.Pair{Begin: 2 * i, End: 2*i + 1})
	}
	_, ok := ts.AllocatePair()
	assert.For(ctx, "exhausted").That(ok).Equals(false)
	ts.Reset()
	p, ok := ts.AllocatePair()
	assert.For(ctx, "after reset").That(ok).Equals(true)
	assert.For(ctx, "first pair").That(p).Equals(hook.Pair{Begin: 0, End: 1})
}

func TestAllocatePairConcurrent(t *testing.T) {
	ctx := log.Testing(t)
	const maxEvents = 1000
	ts, _ := hook.NewTimestampManager(newFakeGPU(), maxEvents)
	var mu sync.Mutex
	seen := map[uint32]bool{}
	wg := sync.WaitGroup{}
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				p, ok := ts.AllocatePair()
				if !ok {
					return
				}
				mu.Lock()
				seen[p.Begin] = true
				seen[p.End] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.For(ctx, "slots").That(len(seen)).Equals(2 * maxEvents)
	assert.For(ctx, "used").That(ts.Used()).Equals(uint32(2 * maxEvents))
}

func TestAllocatePairProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	properties.Property("exhausted exactly when 2*allocations reaches capacity", prop.ForAll(
		func(maxEvents, attempts int) bool {
			ts, err := hook.NewTimestampManager(newFakeGPU(), maxEvents)
			if err != nil {
				return false
			}
			succeeded := 0
			for i := 0; i < attempts; i++ {
				_, ok := ts.AllocatePair()
				if ok != (2*succeeded < int(ts.Capacity())) {
					return false
				}
				if ok {
					succeeded++
				}
			}
			ts.Reset()
			_, ok := ts.AllocatePair()
			return ok
		},
		gen.IntRange(1, 64),
		gen.IntRange(0, 200),
	))
	properties.TestingRun(t)
}

func TestReadResults(t *testing.T) {
	ctx := log.Testing(t)
	gpu := newFakeGPU()
	ts, _ := hook.NewTimestampManager(gpu, 4)
	list := fakeList{gpu: gpu, id: 1}
	p, _ := ts.AllocatePair()
	ts.InsertTimestamp(list, p.Begin)
	ts.InsertTimestamp(list, p.End)
	ts.ResolveAll(list)
	ticks, err := ts.ReadResults()
	assert.For(ctx, "read").ThatError(err).Succeeded()
	assert.For(ctx, "ticks").ThatSlice(ticks).Equals([]uint64{1010, 1020})

	gpu.failMap = true
	_, err = ts.ReadResults()
	assert.For(ctx, "map failure").ThatError(err).Failed()

	ts.Reset()
	ticks, err = ts.ReadResults()
	assert.For(ctx, "empty").ThatError(err).Succeeded()
	assert.For(ctx, "no ticks").ThatSlice(ticks).IsEmpty()
}

func TestResolveSkippedWhenUnused(t *testing.T) {
	ctx := log.Testing(t)
	gpu := newFakeGPU()
	ts, _ := hook.NewTimestampManager(gpu, 4)
	ts.ResolveAll(fakeList{gpu: gpu})
	assert.For(ctx, "resolves").That(gpu.resolves).Equals(0)
}

func TestTimestampSetupFailure(t *testing.T) {
	ctx := log.Testing(t)
	gpu := newFakeGPU()
	gpu.failPool = true
	_, err := hook.NewTimestampManager(gpu, 4)
	assert.For(ctx, "pool").ThatError(err).Failed()
	_, err = hook.NewTimestampManager(newFakeGPU(), 0)
	assert.For(ctx, "capacity").ThatError(err).Failed()
}
