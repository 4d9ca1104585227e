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

import "github.com/tessapower/tattler/core/fault"

const (
	// ErrTruncated is returned when a buffer ends before the structure it encodes.
	ErrTruncated = fault.Const("Capture data truncated")
	// ErrTrailingBytes is returned when bytes remain after a complete snapshot.
	ErrTrailingBytes = fault.Const("Unexpected bytes after capture data")
	// ErrUnknownKind is returned for an event kind tag outside the known set.
	ErrUnknownKind = fault.Const("Unknown event kind")
	// ErrMissingParams is returned when encoding an event without parameters.
	ErrMissingParams = fault.Const("Event has no parameters")
	// ErrNotCaptureFile is returned when a file does not start with the capture magic.
	ErrNotCaptureFile = fault.Const("Not a capture file")
	// ErrFileVersion is returned for capture files of an unsupported version.
	ErrFileVersion = fault.Const("Unsupported capture file version")
)
