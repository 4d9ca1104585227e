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

// Package endian implements the binary streams for an explicit byte order.
package endian

import (
	eb "encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/data/binary"
	"github.com/tessapower/tattler/core/os/device"
)

// Reader returns a binary.Reader that decodes from r in byte order e.
func Reader(r io.Reader, e device.Endian) binary.Reader {
	return &reader{state{order: orderOf(e)}, r}
}

// Writer returns a binary.Writer that encodes to w in byte order e.
func Writer(w io.Writer, e device.Endian) binary.Writer {
	return &writer{state{order: orderOf(e)}, w}
}

func orderOf(e device.Endian) eb.ByteOrder {
	if e == device.BigEndian {
		return eb.BigEndian
	}
	return eb.LittleEndian
}

type state struct {
	order eb.ByteOrder
	buf   [8]byte
	err   error
}

func (s *state) Error() error { return s.err }

func (s *state) SetError(err error) {
	if s.err == nil {
		s.err = err
	}
}

type reader struct {
	state
	in io.Reader
}

func (r *reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.in.Read(p)
}

func (r *reader) Data(p []byte) {
	if r.err != nil {
		return
	}
	if n, err := io.ReadFull(r.in, p); err != nil {
		r.err = errors.Wrapf(err, "read %d of %d bytes", n, len(p))
	}
}

// next reads n bytes into the scratch buffer. On error the buffer is zeroed.
func (r *reader) next(n int) []byte {
	b := r.buf[:n]
	r.Data(b)
	if r.err != nil {
		clear(b)
	}
	return b
}

func (r *reader) Bool() bool       { return r.Uint8() != 0 }
func (r *reader) Uint8() uint8     { return r.next(1)[0] }
func (r *reader) Uint16() uint16   { return r.order.Uint16(r.next(2)) }
func (r *reader) Uint32() uint32   { return r.order.Uint32(r.next(4)) }
func (r *reader) Uint64() uint64   { return r.order.Uint64(r.next(8)) }
func (r *reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }
func (r *reader) Float64() float64 { return math.Float64frombits(r.Uint64()) }
func (r *reader) Count() uint32    { return r.Uint32() }

type writer struct {
	state
	out io.Writer
}

func (w *writer) Data(p []byte) {
	if w.err != nil {
		return
	}
	if n, err := w.out.Write(p); err != nil {
		w.err = err
	} else if n != len(p) {
		w.err = io.ErrShortWrite
	}
}

func (w *writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *writer) Uint8(v uint8) {
	w.buf[0] = v
	w.Data(w.buf[:1])
}

func (w *writer) Uint16(v uint16) {
	w.order.PutUint16(w.buf[:], v)
	w.Data(w.buf[:2])
}

func (w *writer) Uint32(v uint32) {
	w.order.PutUint32(w.buf[:], v)
	w.Data(w.buf[:4])
}

func (w *writer) Uint64(v uint64) {
	w.order.PutUint64(w.buf[:], v)
	w.Data(w.buf[:8])
}

func (w *writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }
func (w *writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }
func (w *writer) Count(v uint32)    { w.Uint32(v) }
