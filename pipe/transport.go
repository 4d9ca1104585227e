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
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/event/task"
	"github.com/tessapower/tattler/core/log"
)

// DefaultName is the channel name used when none is configured.
const DefaultName = "tattler"

// Listen creates the single server end of the named channel.
func Listen(ctx context.Context, name string) (net.Listener, error) {
	l, err := listen(name)
	if err != nil {
		return nil, log.Errf(ctx, err, "Listening on %s", Address(name))
	}
	log.D(ctx, "Listening on %s", Address(name))
	return l, nil
}

// Dial connects to the named channel, retrying until the server is
// listening, ctx is cancelled or timeout elapses.
func Dial(ctx context.Context, name string, timeout time.Duration) (*Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var conn net.Conn
	err := task.Retry(ctx, 0, 100*time.Millisecond, func(ctx context.Context) (bool, error) {
		var err error
		conn, err = dial(ctx, name)
		if err != nil {
			log.D(ctx, "Dial %s: %v", Address(name), err)
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Connecting to %s", Address(name))
	}
	return NewConn(conn), nil
}

// Accept waits for a single client on l and returns it as a Conn.
func Accept(ctx context.Context, l net.Listener) (*Conn, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-task.ShouldStop(ctx):
			l.Close()
		case <-stop:
		}
	}()
	conn, err := l.Accept()
	if err != nil {
		if task.Stopped(ctx) {
			return nil, task.StopReason(ctx)
		}
		return nil, err
	}
	return NewConn(conn), nil
}
