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

// Package device describes properties of the machine a capture was taken on.
package device

import "runtime"

// Endian is the byte order of a target.
type Endian int32

const (
	UnknownEndian = Endian(0)
	BigEndian     = Endian(1)
	LittleEndian  = Endian(2)
)

func (e Endian) String() string {
	switch e {
	case BigEndian:
		return "BigEndian"
	case LittleEndian:
		return "LittleEndian"
	default:
		return "UnknownEndian"
	}
}

// HostEndian returns the byte order of the running process.
func HostEndian() Endian {
	switch runtime.GOARCH {
	case "ppc64", "mips", "mips64", "s390x":
		return BigEndian
	default:
		return LittleEndian
	}
}
