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

package log_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tessapower/tattler/core/assert"
	"github.com/tessapower/tattler/core/log"
)

type recorder struct{ messages []*log.Message }

func (r *recorder) Handle(m *log.Message) { r.messages = append(r.messages, m) }
func (r *recorder) Close()                {}

func TestSeverityFilter(t *testing.T) {
	assertCtx := log.Testing(t)
	r := &recorder{}
	ctx := log.PutHandler(context.Background(), r)
	ctx = log.PutFilter(ctx, log.SeverityFilter(log.Warning))

	log.D(ctx, "dropped")
	log.I(ctx, "dropped")
	log.W(ctx, "kept %d", 1)
	log.E(ctx, "kept %d", 2)

	if assert.For(assertCtx, "messages").ThatSlice(r.messages).IsLength(2) {
		assert.For(assertCtx, "first").ThatString(r.messages[0].Text).Equals("kept 1")
		assert.For(assertCtx, "second").That(r.messages[1].Severity).Equals(log.Error)
	}
}

func TestMessageContext(t *testing.T) {
	assertCtx := log.Testing(t)
	r := &recorder{}
	ctx := log.PutHandler(context.Background(), r)
	ctx = log.PutClock(ctx, log.FixedClock(time.Date(2026, 1, 2, 3, 4, 5, 6e6, time.UTC)))
	ctx = log.PutTag(ctx, "hook")
	ctx = log.Enter(ctx, "Controller")
	ctx = log.Enter(ctx, "Run")
	ctx = log.V{"session": "abc", "frame": 3}.Bind(ctx)
	ctx = log.V{"frame": 4}.Bind(ctx)

	log.I(ctx, "frame done")

	m := r.messages[0]
	assert.For(assertCtx, "tag").ThatString(m.Tag).Equals("hook")
	assert.For(assertCtx, "trace").ThatSlice(m.Trace).Equals([]string{"Controller", "Run"})
	assert.For(assertCtx, "values").ThatSlice(m.Values).IsLength(2)
	assert.For(assertCtx, "shadowed").That(m.Values[0].Value).Equals(4)
	assert.For(assertCtx, "printed").ThatString(log.Normal.Print(m)).Equals(
		"03:04:05.006 I: [hook] frame done (frame: 4, session: abc)")
}

func TestErr(t *testing.T) {
	ctx := log.Testing(t)
	cause := errors.New("pipe closed")
	err := log.Err(ctx, cause, "Receive failed")
	assert.For(ctx, "err").ThatError(err).HasCause(cause)
	assert.For(ctx, "is").That(errors.Is(err, cause)).Equals(true)
	assert.For(ctx, "text").ThatString(err.Error()).Equals("Receive failed\n   Cause: pipe closed")
}

func TestParseSeverity(t *testing.T) {
	ctx := log.Testing(t)
	s, err := log.ParseSeverity("warning")
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "severity").That(s).Equals(log.Warning)
	_, err = log.ParseSeverity("loud")
	assert.For(ctx, "unknown").ThatError(err).Failed()
}

func TestChannelFlushesOnClose(t *testing.T) {
	ctx := log.Testing(t)
	r := &recorder{}
	h := log.Channel(r, 4)
	for i := 0; i < 10; i++ {
		h.Handle(&log.Message{Text: "x"})
	}
	h.Close()
	assert.For(ctx, "delivered").ThatSlice(r.messages).IsLength(10)
}
