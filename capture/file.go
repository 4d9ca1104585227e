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
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/data/endian"
)

// Compression selects how the snapshot body of a capture file is stored.
type Compression uint32

const (
	NoCompression Compression = iota
	ZstdCompression
)

const (
	// FileMagic is the first four bytes of every capture file.
	FileMagic = "TTLR"
	// FileVersion is the capture file version written by Save.
	FileVersion = uint32(1)
)

var (
	// encoder and decoder for zstd are reusable and safe for concurrent use.
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Save writes s to w as a capture file.
func Save(w io.Writer, s *Snapshot, c Compression) error {
	body, err := Serialize(s)
	if err != nil {
		return err
	}
	switch c {
	case NoCompression:
	case ZstdCompression:
		body = zstdEncoder.EncodeAll(body, make([]byte, 0, len(body)/2))
	default:
		return errors.Errorf("Unknown compression %d", c)
	}
	out := endian.Writer(w, ByteOrder)
	out.Data([]byte(FileMagic))
	out.Uint32(FileVersion)
	out.Uint32(uint32(c))
	out.Data(body)
	return errors.Wrap(out.Error(), "Writing capture file")
}

// Load reads a capture file written by Save.
func Load(r io.Reader) (*Snapshot, error) {
	in := endian.Reader(r, ByteOrder)
	magic := make([]byte, len(FileMagic))
	in.Data(magic)
	version := in.Uint32()
	c := Compression(in.Uint32())
	if err := in.Error(); err != nil {
		return nil, errors.Wrap(ErrNotCaptureFile, err.Error())
	}
	if !bytes.Equal(magic, []byte(FileMagic)) {
		return nil, errors.Wrapf(ErrNotCaptureFile, "magic %q", magic)
	}
	if version != FileVersion {
		return nil, errors.Wrapf(ErrFileVersion, "version %d", version)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "Reading capture file")
	}
	switch c {
	case NoCompression:
	case ZstdCompression:
		if body, err = zstdDecoder.DecodeAll(body, nil); err != nil {
			return nil, errors.Wrap(err, "Decompressing capture file")
		}
	default:
		return nil, errors.Errorf("Unknown compression %d", c)
	}
	return Deserialize(body)
}

// WriteFile saves s as a zstd compressed capture file at path.
func WriteFile(path string, s *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, s, ZstdCompression); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads the capture file at path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
