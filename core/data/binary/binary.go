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

// Package binary declares the fixed-width value streams the capture format
// and the pipe protocol are written with. Implementations stop at the first
// error: later reads return zero values and later writes do nothing.
package binary

import "io"

// Reader decodes values from a stream.
type Reader interface {
	io.Reader
	Data([]byte)
	Bool() bool
	Uint8() uint8
	Uint16() uint16
	Uint32() uint32
	Uint64() uint64
	Float32() float32
	Float64() float64
	// Count decodes the length prefix of a collection.
	Count() uint32
	// Error returns the error that stopped the stream, if any.
	Error() error
	// SetError stops the stream with err unless it already stopped.
	SetError(err error)
}

// Writer encodes values to a stream.
type Writer interface {
	Data([]byte)
	Bool(bool)
	Uint8(uint8)
	Uint16(uint16)
	Uint32(uint32)
	Uint64(uint64)
	Float32(float32)
	Float64(float64)
	Count(uint32)
	Error() error
	SetError(err error)
}

// ConsumeBytes skips n bytes of r and returns how many were skipped.
func ConsumeBytes(r Reader, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	got, err := io.CopyN(io.Discard, r, int64(n))
	if err != nil {
		r.SetError(err)
	}
	return uint64(got)
}
