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

// The tattler command drives capture sessions against an application that
// has the tattler hook loaded, and inspects the capture files it produces.
package main

import (
	"github.com/tessapower/tattler/core/app"
)

func main() {
	app.ShortHelp = "tattler records and inspects GPU command captures."
	app.Run(app.VerbMain)
}
