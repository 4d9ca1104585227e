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

package capture

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/data/binary"
	"github.com/tessapower/tattler/core/data/endian"
	"github.com/tessapower/tattler/core/os/device"
)

// ByteOrder is the byte order of every encoded field.
const ByteOrder = device.LittleEndian

// Packed sizes of the fixed portions of each encoded structure.
const (
	snapshotHeaderSize = 8 + 4
	frameHeaderSize    = 4 + 8 + 8 + 8 + 4
	eventHeaderSize    = 4 + 4 + 4 + 8*5
	textureHeaderSize  = 8 + 4 + 4 + 4 + 4
	subresourceSize    = 4
)

// Serialize returns the flat encoding of s.
func Serialize(s *Snapshot) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(EncodedSize(s))
	if err := Encode(buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodedSize returns the number of bytes Serialize produces for s.
func EncodedSize(s *Snapshot) int {
	n := snapshotHeaderSize
	for _, f := range s.Frames {
		n += frameHeaderSize
		for _, e := range f.Events {
			n += eventHeaderSize
			if e.Params != nil {
				n += e.Params.size()
			}
		}
	}
	n += 4
	for _, t := range s.StagedTextures {
		n += textureHeaderSize + len(t.Pixels) + subresourceSize
	}
	return n
}

// Encode writes the flat encoding of s to out.
//
// Every fixed size field is written without padding, every sequence is
// preceded by a 32 bit count and event parameters follow the shared event
// fields with no tag of their own.
func Encode(out io.Writer, s *Snapshot) error {
	w := endian.Writer(out, ByteOrder)
	w.Float64(s.DurationSeconds)
	w.Count(uint32(len(s.Frames)))
	for i := range s.Frames {
		if err := encodeFrame(w, &s.Frames[i]); err != nil {
			return err
		}
	}
	w.Count(uint32(len(s.StagedTextures)))
	for _, t := range s.StagedTextures {
		w.Uint64(t.Resource)
		w.Uint32(t.Width)
		w.Uint32(t.Height)
		w.Uint32(t.Format)
		w.Count(uint32(len(t.Pixels)))
		w.Data(t.Pixels)
		w.Uint32(t.Subresource)
	}
	return errors.Wrap(w.Error(), "Writing capture data")
}

func encodeFrame(w binary.Writer, f *Frame) error {
	w.Uint32(f.Number)
	w.Uint64(f.CPUStartMicros)
	w.Uint64(f.CPUEndMicros)
	w.Uint64(f.GPUFrequency)
	w.Count(uint32(len(f.Events)))
	for _, e := range f.Events {
		if e.Params == nil {
			return errors.Wrapf(ErrMissingParams, "frame %d event %d", f.Number, e.EventIndex)
		}
		w.Uint32(e.FrameIndex)
		w.Uint32(e.EventIndex)
		w.Uint32(uint32(e.Params.Kind()))
		w.Uint64(e.Begin)
		w.Uint64(e.End)
		w.Uint64(e.CommandList)
		w.Uint64(e.PipelineState)
		w.Uint64(e.RenderTarget)
		e.Params.encode(w)
	}
	return nil
}

// decoder checks every read against the bytes remaining in buf before
// handing it to r.
type decoder struct {
	buf *bytes.Reader
	r   binary.Reader
	err error
}

func (d *decoder) need(n uint64, what string) bool {
	if d.err != nil {
		return false
	}
	if remain := uint64(d.buf.Len()); remain < n {
		d.err = errors.Wrapf(ErrTruncated, "%s needs %d bytes, %d remain", what, n, remain)
		return false
	}
	return true
}

// count reads a sequence length and checks that count elements of at least
// min bytes each fit in the remaining buffer.
func (d *decoder) count(min uint64, what string) (uint32, bool) {
	if !d.need(4, what) {
		return 0, false
	}
	n := d.r.Count()
	if !d.need(uint64(n)*min, what) {
		return 0, false
	}
	return n, true
}

// Deserialize decodes a snapshot produced by Serialize.
// Any truncation or malformed field fails the whole decode; no partial
// snapshot is returned.
func Deserialize(data []byte) (*Snapshot, error) {
	buf := bytes.NewReader(data)
	d := &decoder{buf: buf, r: endian.Reader(buf, ByteOrder)}
	s, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	if buf.Len() != 0 {
		return nil, errors.Wrapf(ErrTrailingBytes, "%d bytes", buf.Len())
	}
	return s, nil
}

func (d *decoder) snapshot() (*Snapshot, error) {
	s := &Snapshot{}
	if !d.need(8, "duration") {
		return nil, d.err
	}
	s.DurationSeconds = d.r.Float64()

	frames, ok := d.count(frameHeaderSize, "frames")
	if !ok {
		return nil, d.err
	}
	if frames > 0 {
		s.Frames = make([]Frame, frames)
	}
	for i := range s.Frames {
		if !d.frame(&s.Frames[i]) {
			return nil, d.err
		}
	}

	textures, ok := d.count(textureHeaderSize+subresourceSize, "staged textures")
	if !ok {
		return nil, d.err
	}
	if textures > 0 {
		s.StagedTextures = make([]StagedTexture, textures)
	}
	for i := range s.StagedTextures {
		if !d.texture(&s.StagedTextures[i]) {
			return nil, d.err
		}
	}
	if err := d.r.Error(); err != nil {
		return nil, errors.Wrap(err, "Reading capture data")
	}
	return s, nil
}

func (d *decoder) frame(f *Frame) bool {
	if !d.need(frameHeaderSize-4, "frame header") {
		return false
	}
	f.Number = d.r.Uint32()
	f.CPUStartMicros = d.r.Uint64()
	f.CPUEndMicros = d.r.Uint64()
	f.GPUFrequency = d.r.Uint64()
	events, ok := d.count(eventHeaderSize, "events")
	if !ok {
		return false
	}
	if events > 0 {
		f.Events = make([]Event, events)
	}
	for i := range f.Events {
		if !d.event(&f.Events[i]) {
			return false
		}
	}
	return true
}

func (d *decoder) event(e *Event) bool {
	if !d.need(eventHeaderSize, "event") {
		return false
	}
	e.FrameIndex = d.r.Uint32()
	e.EventIndex = d.r.Uint32()
	kind := Kind(d.r.Uint32())
	e.Begin = d.r.Uint64()
	e.End = d.r.Uint64()
	e.CommandList = d.r.Uint64()
	e.PipelineState = d.r.Uint64()
	e.RenderTarget = d.r.Uint64()
	size, ok := paramsSize(kind)
	if !ok {
		d.err = errors.Wrapf(ErrUnknownKind, "%d", uint32(kind))
		return false
	}
	if !d.need(uint64(size), kind.String()+" params") {
		return false
	}
	e.Params = decodeParams(kind, d.r)
	return true
}

func (d *decoder) texture(t *StagedTexture) bool {
	if !d.need(textureHeaderSize-4, "staged texture") {
		return false
	}
	t.Resource = d.r.Uint64()
	t.Width = d.r.Uint32()
	t.Height = d.r.Uint32()
	t.Format = d.r.Uint32()
	pixels, ok := d.count(1, "pixels")
	if !ok {
		return false
	}
	if pixels > 0 {
		t.Pixels = make([]byte, pixels)
		d.r.Data(t.Pixels)
	}
	if !d.need(subresourceSize, "subresource") {
		return false
	}
	t.Subresource = d.r.Uint32()
	return true
}
