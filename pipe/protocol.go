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

// Package pipe implements the framed message protocol spoken between the
// capture hook and the viewer over a duplex byte channel.
package pipe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/data/binary"
	"github.com/tessapower/tattler/core/data/endian"
	"github.com/tessapower/tattler/core/fault"
	"github.com/tessapower/tattler/core/os/device"
)

// The message header is defined as:
//
//	struct MessageHeader {
//	    uint32_t version;      // Version
//	    uint32_t kind;         // Kind
//	    uint32_t payloadSize;  // bytes following the header
//	};
//
// All fields are encoded little-endian.
const (
	// Version is the protocol version written in every header.
	Version = uint32(1)
	// HeaderSize is the encoded size of a message header.
	HeaderSize = 12
	// MaxPayloadSize bounds the payload a receiver will buffer.
	MaxPayloadSize = 1 << 30
)

const (
	// ErrVersion is returned when a header carries an unexpected version.
	ErrVersion = fault.Const("Protocol version mismatch")
	// ErrPayloadTooLarge is returned for headers declaring more than MaxPayloadSize bytes.
	ErrPayloadTooLarge = fault.Const("Message payload too large")
)

// Kind identifies a message.
type Kind uint32

const (
	// StartCapture is sent by the viewer to begin a session. It has no payload.
	StartCapture Kind = iota
	// StopCapture is sent by the viewer to end a session. It has no payload.
	StopCapture
	// CaptureData is sent by the hook and carries a serialized snapshot.
	CaptureData
)

func (k Kind) String() string {
	switch k {
	case StartCapture:
		return "StartCapture"
	case StopCapture:
		return "StopCapture"
	case CaptureData:
		return "CaptureData"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Header precedes every message.
type Header struct {
	Version     uint32
	Kind        Kind
	PayloadSize uint32
}

func (h Header) encode(w binary.Writer) {
	w.Uint32(h.Version)
	w.Uint32(uint32(h.Kind))
	w.Uint32(h.PayloadSize)
}

// writeFull writes all of data, looping over short writes.
func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}

// WriteMessage writes a header for kind followed by payload.
func WriteMessage(w io.Writer, kind Kind, payload []byte) error {
	if uint64(len(payload)) > MaxPayloadSize {
		return errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(payload))
	}
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(payload)))
	hw := endian.Writer(buf, device.LittleEndian)
	Header{Version: Version, Kind: kind, PayloadSize: uint32(len(payload))}.encode(hw)
	if err := hw.Error(); err != nil {
		return err
	}
	buf.Write(payload)
	return errors.Wrapf(writeFull(w, buf.Bytes()), "Writing %v", kind)
}

// ReadHeader reads exactly one message header.
// A header with the wrong version is returned along with ErrVersion.
func ReadHeader(r io.Reader) (Header, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, err
	}
	hr := endian.Reader(bytes.NewReader(raw[:]), device.LittleEndian)
	h := Header{
		Version:     hr.Uint32(),
		Kind:        Kind(hr.Uint32()),
		PayloadSize: hr.Uint32(),
	}
	if h.Version != Version {
		return h, errors.Wrapf(ErrVersion, "got %d, expected %d", h.Version, Version)
	}
	if h.PayloadSize > MaxPayloadSize {
		return h, errors.Wrapf(ErrPayloadTooLarge, "%d bytes", h.PayloadSize)
	}
	return h, nil
}

// ReadPayload reads exactly the payload declared by h.
func ReadPayload(r io.Reader, h Header) ([]byte, error) {
	if h.PayloadSize == 0 {
		return nil, nil
	}
	payload := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrapf(err, "Reading %d byte %v payload", h.PayloadSize, h.Kind)
	}
	return payload, nil
}

// SkipPayload consumes and discards the payload declared by h.
func SkipPayload(r io.Reader, h Header) error {
	if h.PayloadSize == 0 {
		return nil
	}
	br := endian.Reader(r, device.LittleEndian)
	binary.ConsumeBytes(br, uint64(h.PayloadSize))
	return errors.Wrapf(br.Error(), "Skipping %d byte %v payload", h.PayloadSize, h.Kind)
}

// ReadMessage reads a header and its payload.
func ReadMessage(r io.Reader) (Kind, []byte, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return h.Kind, nil, err
	}
	payload, err := ReadPayload(r, h)
	return h.Kind, payload, err
}
