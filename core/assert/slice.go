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
)

// OnSlice holds checks on a slice or array. Other types panic.
type OnSlice struct {
	*Assertion
	slice reflect.Value
}

// ThatSlice starts checks on slice.
func (a *Assertion) ThatSlice(slice interface{}) OnSlice {
	return OnSlice{a, reflect.ValueOf(slice)}
}

func (o OnSlice) length(ok func(int) bool, op string, n int) bool {
	return o.check(ok(o.slice.Len()), o.slice.Len(), "length "+op, n)
}

// IsEmpty checks there are no elements.
func (o OnSlice) IsEmpty() bool {
	return o.length(func(l int) bool { return l == 0 }, "==", 0)
}

// IsNotEmpty checks there is at least one element.
func (o OnSlice) IsNotEmpty() bool {
	return o.length(func(l int) bool { return l > 0 }, ">", 0)
}

// IsLength checks there are exactly n elements.
func (o OnSlice) IsLength(n int) bool {
	return o.length(func(l int) bool { return l == n }, "==", n)
}

// Equals compares element by element with ==, reporting the first
// mismatch.
func (o OnSlice) Equals(expect interface{}) bool {
	e := reflect.ValueOf(expect)
	if o.slice.Len() != e.Len() {
		return o.check(false, o.slice.Len(), "length ==", e.Len())
	}
	for i := 0; i < e.Len(); i++ {
		g, x := o.slice.Index(i).Interface(), e.Index(i).Interface()
		if g != x {
			o.fail(row{fmt.Sprintf("[%d]", i), pretty(g)}, row{"Expect", "==\t" + pretty(x)})
			return false
		}
	}
	return true
}

// DeepEquals compares structurally and reports a diff on mismatch.
func (o OnSlice) DeepEquals(expect interface{}) bool {
	return o.deepDiff(o.slice.Interface(), expect)
}
