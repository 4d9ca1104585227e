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

package log

import (
	"strings"

	"github.com/pkg/errors"
)

// Severity orders messages from Verbose up to Fatal.
type Severity int32

const (
	Verbose Severity = iota
	Debug
	Info
	Warning // Might affect results but can be ignored.
	Error   // A failure that does not stop the process.
	Fatal
)

var severityNames = [...]string{"Verbose", "Debug", "Info", "Warning", "Error", "Fatal"}

func (s Severity) String() string {
	if s < Verbose || s > Fatal {
		return "?"
	}
	return severityNames[s]
}

// Short is the first letter of the name.
func (s Severity) Short() string { return s.String()[:1] }

// ParseSeverity looks up a severity by name, ignoring case.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return Info, errors.Errorf("unknown log severity %q", name)
}
