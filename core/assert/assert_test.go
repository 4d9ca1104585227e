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

package assert_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/tessapower/tattler/core/assert"
)

type capture struct{ errors, logs []string }

func (c *capture) Fatal(args ...interface{}) { c.Error(args...) }
func (c *capture) Error(args ...interface{}) { c.errors = append(c.errors, args[0].(string)) }
func (c *capture) Log(args ...interface{})   { c.logs = append(c.logs, args[0].(string)) }

func TestFailuresAreReported(t *testing.T) {
	out := &capture{}
	ok := assert.For(out, "value").That(1).Equals(2)
	if ok || len(out.errors) != 1 {
		t.Fatalf("expected one failure, got %v", out.errors)
	}
	if !strings.Contains(out.errors[0], "Got") {
		t.Errorf("failure text missing Got entry: %s", out.errors[0])
	}
}

func TestDeepEqualsDiff(t *testing.T) {
	type pair struct{ A, B int }
	out := &capture{}
	assert.For(out, "pair").That(pair{1, 2}).DeepEquals(pair{1, 3})
	if len(out.errors) != 1 || !strings.Contains(out.errors[0], "Diff") {
		t.Fatalf("expected a diff, got %v", out.errors)
	}
	out = &capture{}
	assert.For(out, "pair").That(pair{1, 2}).DeepEquals(pair{1, 2})
	if len(out.errors) != 0 {
		t.Fatalf("unexpected failure %v", out.errors)
	}
}

func TestPassingAssertionsAreSilent(t *testing.T) {
	out := &capture{}
	assert.For(out, "slice").ThatSlice([]int{1, 2}).Equals([]int{1, 2})
	assert.For(out, "string").ThatString("abc").Contains("b")
	assert.For(out, "error").ThatError(nil).Succeeded()
	assert.For(out, "failed").ThatError(errors.New("x")).Failed()
	assert.For(out, "nil").That((*int)(nil)).IsNil()
	if len(out.errors) != 0 || len(out.logs) != 0 {
		t.Fatalf("unexpected output %v %v", out.errors, out.logs)
	}
}
