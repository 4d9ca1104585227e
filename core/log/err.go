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
	"context"
	"fmt"
)

// Err returns an error with the message msg that wraps cause. The message
// carries the logging state of ctx.
func Err(ctx context.Context, cause error, msg string) error {
	return &logErr{cause, From(ctx).Message(Error, false, msg)}
}

// Errf is Err with a printf-style message.
func Errf(ctx context.Context, cause error, format string, args ...interface{}) error {
	return Err(ctx, cause, fmt.Sprintf(format, args...))
}

type logErr struct {
	cause error
	msg   *Message
}

// Cause is for errors.Cause.
func (e *logErr) Cause() error { return e.cause }

// Unwrap is for errors.Is.
func (e *logErr) Unwrap() error { return e.cause }

func (e *logErr) Error() string {
	if e.cause == nil {
		return e.msg.Text
	}
	return e.msg.Text + "\n   Cause: " + e.cause.Error()
}
