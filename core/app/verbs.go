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

package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Action is the work a verb performs once its flags are parsed.
type Action interface {
	Run(ctx context.Context, flags *flag.FlagSet) error
}

// Binder is implemented by actions that declare flags.
type Binder interface {
	Bind(flags *flag.FlagSet)
}

// Verb holds information about a runnable command.
type Verb struct {
	Name       string // The name of the command
	ShortHelp  string // Help for the purpose of the command
	ShortUsage string // Help for how to use the command
	Action     Action // The action for the command
	flags      *flag.FlagSet
	verbs      []*Verb
}

var globalVerbs Verb

// Add adds a new child verb, it will panic if a duplicate name is
// encountered.
func (v *Verb) Add(child *Verb) {
	for _, c := range v.verbs {
		if c.Name == child.Name {
			panic(fmt.Errorf("Duplicate verb name %s", child.Name))
		}
	}
	child.flags = flag.NewFlagSet(child.Name, flag.ContinueOnError)
	child.flags.SetOutput(io.Discard)
	if b, ok := child.Action.(Binder); ok {
		b.Bind(child.flags)
	}
	v.verbs = append(v.verbs, child)
}

// Filter returns the child verbs whose names start with prefix. An exact
// name match is returned on its own.
func (v *Verb) Filter(prefix string) (result []*Verb) {
	for _, child := range v.verbs {
		if child.Name == prefix {
			return []*Verb{child}
		}
		if strings.HasPrefix(child.Name, prefix) {
			result = append(result, child)
		}
	}
	return result
}

// Invoke runs the child verb named by args[0] with the remaining arguments.
func (v *Verb) Invoke(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return Usage("Must supply a verb to %s", v.Name)
	}
	matches := v.Filter(args[0])
	switch len(matches) {
	case 1:
		verb := matches[0]
		if err := verb.flags.Parse(args[1:]); err != nil {
			return Usage("%s: %v", verb.Name, err)
		}
		return verb.Action.Run(ctx, verb.flags)
	case 0:
		return Usage("Verb '%s' is unknown", args[0])
	default:
		return Usage("Verb '%s' is ambiguous", args[0])
	}
}

// WriteHelp prints the verbs and their flags to w.
func (v *Verb) WriteHelp(w io.Writer) {
	if v.ShortHelp != "" {
		fmt.Fprintf(w, "%s: %s\n", v.Name, v.ShortHelp)
	}
	fmt.Fprintf(w, "Usage: %s [flags] verb [verb-flags] [args]\n", v.Name)
	verbs := append([]*Verb(nil), v.verbs...)
	sort.Slice(verbs, func(i, j int) bool { return verbs[i].Name < verbs[j].Name })
	for _, c := range verbs {
		fmt.Fprintf(w, "\n  %s %s\n      %s\n", c.Name, c.ShortUsage, c.ShortHelp)
		c.flags.SetOutput(w)
		c.flags.PrintDefaults()
		c.flags.SetOutput(io.Discard)
	}
}

// AddVerb adds a new verb to the supported set, it will panic if a
// duplicate name is encountered.
func AddVerb(v *Verb) {
	globalVerbs.Add(v)
}

// VerbMain is a task that can be handed to Run to invoke the verb handling
// system.
func VerbMain(ctx context.Context) error {
	return globalVerbs.Invoke(ctx, flag.Args())
}
