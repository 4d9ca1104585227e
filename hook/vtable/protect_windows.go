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

//go:build windows

package vtable

import "golang.org/x/sys/windows"

type virtualProtect struct{}

// SystemProtector returns a Protector backed by VirtualProtect.
func SystemProtector() Protector { return virtualProtect{} }

func (virtualProtect) Unprotect(addr, size uintptr) (func() error, error) {
	var old uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return nil, err
	}
	return func() error {
		var ignored uint32
		return windows.VirtualProtect(addr, size, old, &ignored)
	}, nil
}
