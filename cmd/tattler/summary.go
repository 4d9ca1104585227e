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

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tessapower/tattler/capture"
)

// writeSummary prints one line per frame, and one per event if events is
// set.
func writeSummary(out io.Writer, s *capture.Snapshot, events bool) {
	pixels := 0
	for _, t := range s.StagedTextures {
		pixels += len(t.Pixels)
	}
	fmt.Fprintf(out, "Duration: %v\n", time.Duration(s.DurationSeconds*float64(time.Second)).Round(time.Millisecond))
	fmt.Fprintf(out, "Frames:   %s\n", humanize.Comma(int64(len(s.Frames))))
	fmt.Fprintf(out, "Events:   %s\n", humanize.Comma(int64(s.EventCount())))
	fmt.Fprintf(out, "Textures: %d (%s)\n", len(s.StagedTextures), humanize.Bytes(uint64(pixels)))
	if len(s.Frames) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 2, 8, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Frame\tEvents\tCPU\tGPU\t")
	for _, f := range s.Frames {
		gpu := time.Duration(0)
		if begin, end, ok := f.GPUSpan(); ok && end >= begin {
			gpu = capture.TicksToDuration(end-begin, f.GPUFrequency)
		}
		fmt.Fprintf(w, "%d\t%d\t%v\t%v\t\n", f.Number, len(f.Events), f.CPUDuration(), gpu)
		if !events {
			continue
		}
		for _, e := range f.Events {
			fmt.Fprintf(w, "  %d\t%v\t\t%v\t%+v\n", e.EventIndex, e.Kind(), e.GPUDuration(f.GPUFrequency), e.Params)
		}
	}
}
