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

// Package app provides the process entry point of the command line tools:
// root context and logging setup, verb dispatch and shutdown on interrupt.
package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/app/crash"
	"github.com/tessapower/tattler/core/event/task"
	"github.com/tessapower/tattler/core/log"
)

var (
	// Name is the name of the application.
	Name = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	// ShortHelp should be set to add a help message to the usage text.
	ShortHelp = ""
	// ExitFuncForTesting can be set to change the behaviour when the
	// application exits. It defaults to os.Exit.
	ExitFuncForTesting = os.Exit
)

// ExitCode is the process exit status.
type ExitCode int

const (
	// SuccessExit is the exit code for success.
	SuccessExit = ExitCode(0)
	// FatalExit is the exit code when the main task fails.
	FatalExit = ExitCode(1)
	// UsageExit is the exit code for bad command lines.
	UsageExit = ExitCode(2)
)

type usageError string

func (e usageError) Error() string { return string(e) }

// Usage returns an error that makes Run print msg followed by the usage
// text and exit with UsageExit.
func Usage(msg string, args ...interface{}) error {
	return usageError(fmt.Sprintf(msg, args...))
}

// IsUsage reports whether err was made by Usage.
func IsUsage(err error) bool {
	_, ok := errors.Cause(err).(usageError)
	return ok
}

// Run performs all the work needed to start up an application. It parses
// the global flags, builds a root context that is cancelled on interrupt,
// runs main and exits with a status reflecting the result.
func Run(main task.Task) {
	crash.Register(func(e interface{}, stack []byte) {
		fmt.Fprintf(os.Stderr, "%s crashed: %v\n%s", Name, e, stack)
	})

	level := flag.String("log-level", "info", "Minimum severity to log (verbose, debug, info, warning, error, fatal)")
	style := flag.String("log-style", log.Normal.Name, "Log style (brief, normal, detailed)")
	globalVerbs.Name = Name
	globalVerbs.ShortHelp = ShortHelp
	flag.Usage = func() { globalVerbs.WriteHelp(os.Stderr) }
	flag.Parse()

	ctx, err := logContext(context.Background(), *level, *style)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		ExitFuncForTesting(int(UsageExit))
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	crash.Go(func() {
		select {
		case <-interrupt:
			log.I(ctx, "Interrupted")
			cancel()
		case <-ctx.Done():
		}
	})

	err = main(ctx)
	switch {
	case err == nil:
	case IsUsage(err):
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		globalVerbs.WriteHelp(os.Stderr)
		ExitFuncForTesting(int(UsageExit))
	default:
		log.F(ctx, true, "Main failed\nError: %v", err)
		ExitFuncForTesting(int(FatalExit))
	}
}

func logContext(ctx context.Context, level, style string) (context.Context, error) {
	sev, err := log.ParseSeverity(level)
	if err != nil {
		return ctx, err
	}
	s := log.Normal
	switch style {
	case log.Brief.Name:
		s = log.Brief
	case log.Normal.Name:
	case log.Detailed.Name:
		s = log.Detailed
	default:
		return ctx, errors.Errorf("Unknown log style %q", style)
	}
	ctx = log.PutHandler(ctx, s.Handler(log.Std()))
	ctx = log.PutFilter(ctx, log.SeverityFilter(sev))
	return log.PutTag(ctx, Name), nil
}
