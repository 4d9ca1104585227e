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

package assert

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// OnValue holds checks that apply to any value.
type OnValue struct {
	*Assertion
	value interface{}
}

// That starts checks on value.
func (a *Assertion) That(value interface{}) OnValue {
	return OnValue{a, value}
}

// isNil also reports typed nils held in an interface.
func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Ptr, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// IsNil checks the value is nil.
func (o OnValue) IsNil() bool { return o.check(isNil(o.value), o.value, "==", "nil") }

// IsNotNil checks the value is not nil.
func (o OnValue) IsNotNil() bool { return o.check(!isNil(o.value), o.value, "!=", "nil") }

// Equals checks the value is == expect.
func (o OnValue) Equals(expect interface{}) bool {
	return o.check(o.value == expect, o.value, "==", expect)
}

// NotEquals checks the value is != test.
func (o OnValue) NotEquals(test interface{}) bool {
	return o.check(o.value != test, o.value, "!=", test)
}

// DeepEquals compares structurally and reports a diff on mismatch.
func (o OnValue) DeepEquals(expect interface{}) bool { return o.deepDiff(o.value, expect) }

// OnError holds checks on an error.
type OnError struct {
	*Assertion
	err error
}

// ThatError starts checks on err.
func (a *Assertion) ThatError(err error) OnError {
	return OnError{a, err}
}

// Succeeded checks err is nil.
func (o OnError) Succeeded() bool { return o.check(o.err == nil, o.err, "==", "success") }

// Failed checks err is not nil.
func (o OnError) Failed() bool { return o.check(o.err != nil, o.err, "!=", "success") }

// Equals checks err is exactly expect.
func (o OnError) Equals(expect error) bool { return o.check(o.err == expect, o.err, "==", expect) }

// HasCause checks the root cause of err, as found by errors.Cause.
func (o OnError) HasCause(expect error) bool {
	cause := errors.Cause(o.err)
	if cause != expect {
		o.fail(row{"Got", pretty(o.err)}, row{"Cause", pretty(cause)}, row{"Expect", "==\t" + pretty(expect)})
		return false
	}
	return true
}

// OnString holds checks on text.
type OnString struct {
	*Assertion
	value string
}

// ThatString starts checks on a string, a byte slice, or the fmt.Sprint
// form of anything else.
func (a *Assertion) ThatString(value interface{}) OnString {
	switch v := value.(type) {
	case string:
		return OnString{a, v}
	case []byte:
		return OnString{a, string(v)}
	}
	return OnString{a, fmt.Sprint(value)}
}

// Equals checks the text is expect.
func (o OnString) Equals(expect string) bool {
	return o.check(o.value == expect, o.value, "==", expect)
}

// Contains checks the text contains substr.
func (o OnString) Contains(substr string) bool {
	return o.check(strings.Contains(o.value, substr), o.value, "contains", substr)
}
