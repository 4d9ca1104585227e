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

import "context"

// TestOutput matches the logging methods of the test host types.
type TestOutput interface {
	Fatal(...interface{})
	Error(...interface{})
	Log(...interface{})
}

// Testing returns a context that logs to t. Error messages fail the test
// and fatal messages stop it.
func Testing(t TestOutput) context.Context {
	return PutHandler(context.Background(), TestHandler(t, Normal))
}

// TestHandler writes messages to t in style s.
func TestHandler(t TestOutput, s Style) Handler {
	return NewHandler(func(m *Message) {
		text := s.Print(m)
		switch {
		case m.Severity >= Fatal:
			t.Fatal(text)
		case m.Severity >= Error:
			t.Error(text)
		default:
			t.Log(text)
		}
	}, nil)
}
