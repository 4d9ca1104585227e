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
	"fmt"

	"github.com/tessapower/tattler/core/data/binary"
)

// Kind is the wire tag of an event.
type Kind uint32

const (
	KindDraw Kind = iota
	KindDrawIndexed
	KindDispatch
	KindBarrier
	KindClearColor
	KindClearDepth
	KindCopy
	KindPresent

	// KindUnknown is returned for events with no parameters. It is never written.
	KindUnknown Kind = 0xffffffff
)

var kindNames = map[Kind]string{
	KindDraw:        "Draw",
	KindDrawIndexed: "DrawIndexed",
	KindDispatch:    "Dispatch",
	KindBarrier:     "Barrier",
	KindClearColor:  "ClearColor",
	KindClearDepth:  "ClearDepth",
	KindCopy:        "Copy",
	KindPresent:     "Present",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Params is the kind-specific payload of an event. The set of implementations
// is closed: Draw, DrawIndexed, Dispatch, Copy, Barrier, ClearColor,
// ClearDepth and Present.
type Params interface {
	Kind() Kind
	// size is the packed encoded size in bytes.
	size() int
	encode(w binary.Writer)
}

type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
}

type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
}

type Dispatch struct {
	X, Y, Z uint32
}

type Copy struct {
	Source      uint64
	Destination uint64
}

// Barrier describes the first transition of a resource barrier batch.
type Barrier struct {
	Before   uint32
	After    uint32
	Resource uint64
}

type ClearColor struct {
	RenderTarget uint64
	Color        [4]float32
}

type ClearDepth struct {
	DepthStencil uint64
	Depth        float32
	Stencil      uint8
	Flags        uint32
}

type Present struct {
	SyncInterval uint32
	Flags        uint32
}

func (Draw) Kind() Kind        { return KindDraw }
func (DrawIndexed) Kind() Kind { return KindDrawIndexed }
func (Dispatch) Kind() Kind    { return KindDispatch }
func (Copy) Kind() Kind        { return KindCopy }
func (Barrier) Kind() Kind     { return KindBarrier }
func (ClearColor) Kind() Kind  { return KindClearColor }
func (ClearDepth) Kind() Kind  { return KindClearDepth }
func (Present) Kind() Kind     { return KindPresent }

func (Draw) size() int        { return 8 }
func (DrawIndexed) size() int { return 8 }
func (Dispatch) size() int    { return 12 }
func (Copy) size() int        { return 16 }
func (Barrier) size() int     { return 16 }
func (ClearColor) size() int  { return 24 }
func (ClearDepth) size() int  { return 17 }
func (Present) size() int     { return 8 }

func (p Draw) encode(w binary.Writer) {
	w.Uint32(p.VertexCount)
	w.Uint32(p.InstanceCount)
}

func (p DrawIndexed) encode(w binary.Writer) {
	w.Uint32(p.IndexCount)
	w.Uint32(p.InstanceCount)
}

func (p Dispatch) encode(w binary.Writer) {
	w.Uint32(p.X)
	w.Uint32(p.Y)
	w.Uint32(p.Z)
}

func (p Copy) encode(w binary.Writer) {
	w.Uint64(p.Source)
	w.Uint64(p.Destination)
}

func (p Barrier) encode(w binary.Writer) {
	w.Uint32(p.Before)
	w.Uint32(p.After)
	w.Uint64(p.Resource)
}

func (p ClearColor) encode(w binary.Writer) {
	w.Uint64(p.RenderTarget)
	for _, c := range p.Color {
		w.Float32(c)
	}
}

func (p ClearDepth) encode(w binary.Writer) {
	w.Uint64(p.DepthStencil)
	w.Float32(p.Depth)
	w.Uint8(p.Stencil)
	w.Uint32(p.Flags)
}

func (p Present) encode(w binary.Writer) {
	w.Uint32(p.SyncInterval)
	w.Uint32(p.Flags)
}

// paramsSize returns the packed size of the parameters for kind k.
func paramsSize(k Kind) (int, bool) {
	p, ok := zeroParams[k]
	if !ok {
		return 0, false
	}
	return p.size(), true
}

var zeroParams = map[Kind]Params{
	KindDraw:        Draw{},
	KindDrawIndexed: DrawIndexed{},
	KindDispatch:    Dispatch{},
	KindCopy:        Copy{},
	KindBarrier:     Barrier{},
	KindClearColor:  ClearColor{},
	KindClearDepth:  ClearDepth{},
	KindPresent:     Present{},
}

func decodeParams(k Kind, r binary.Reader) Params {
	switch k {
	case KindDraw:
		return Draw{VertexCount: r.Uint32(), InstanceCount: r.Uint32()}
	case KindDrawIndexed:
		return DrawIndexed{IndexCount: r.Uint32(), InstanceCount: r.Uint32()}
	case KindDispatch:
		return Dispatch{X: r.Uint32(), Y: r.Uint32(), Z: r.Uint32()}
	case KindCopy:
		return Copy{Source: r.Uint64(), Destination: r.Uint64()}
	case KindBarrier:
		return Barrier{Before: r.Uint32(), After: r.Uint32(), Resource: r.Uint64()}
	case KindClearColor:
		p := ClearColor{RenderTarget: r.Uint64()}
		for i := range p.Color {
			p.Color[i] = r.Float32()
		}
		return p
	case KindClearDepth:
		return ClearDepth{DepthStencil: r.Uint64(), Depth: r.Float32(), Stencil: r.Uint8(), Flags: r.Uint32()}
	case KindPresent:
		return Present{SyncInterval: r.Uint32(), Flags: r.Uint32()}
	default:
		r.SetError(fmt.Errorf("%v: %v", ErrUnknownKind, k))
		return nil
	}
}
