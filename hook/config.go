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

package hook

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/tessapower/tattler/core/log"
	"github.com/tessapower/tattler/pipe"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "TATTLER_CONFIG"

// Config controls the hook. The zero value of a field selects its default.
type Config struct {
	// Pipe is the name of the viewer channel.
	Pipe string `yaml:"pipe"`
	// MaxEventsPerFrame sizes the timestamp pool. Calls past it in one frame
	// are not traced.
	MaxEventsPerFrame int `yaml:"maxEventsPerFrame"`
	// LogFile is where the hook writes its log. Empty disables logging.
	LogFile string `yaml:"logFile"`
	// LogLevel is the lowest severity written to LogFile.
	LogLevel string `yaml:"logLevel"`
	// ConnectTimeout bounds the wait for the viewer. Zero waits forever.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Pipe:              pipe.DefaultName,
		MaxEventsPerFrame: 1024,
		LogFile:           filepath.Join(os.TempDir(), "tattler-hook.log"),
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "Reading hook config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "Parsing hook config %s", path)
	}
	return cfg, cfg.Validate()
}

// ConfigFromEnv loads the file named by ConfigEnv, or returns the defaults
// if it is unset.
func ConfigFromEnv() (Config, error) {
	if path := os.Getenv(ConfigEnv); path != "" {
		return LoadConfig(path)
	}
	return DefaultConfig(), nil
}

// Validate checks the config for values the hook cannot run with.
func (c Config) Validate() error {
	if c.Pipe == "" {
		return errors.New("Pipe name must not be empty")
	}
	if c.MaxEventsPerFrame <= 0 {
		return errors.Errorf("maxEventsPerFrame must be positive, got %d", c.MaxEventsPerFrame)
	}
	if c.ConnectTimeout < 0 {
		return errors.Errorf("connectTimeout must not be negative, got %v", c.ConnectTimeout)
	}
	if _, err := log.ParseSeverity(c.LogLevel); err != nil {
		return errors.Wrap(err, "logLevel")
	}
	return nil
}

// Logging installs the configured log handler into ctx. Messages are passed
// to the file through a channel so no traced thread waits on the disk. The
// returned function flushes and closes the log.
func (c Config) Logging(ctx context.Context) (context.Context, func(), error) {
	sev, err := log.ParseSeverity(c.LogLevel)
	if err != nil {
		return ctx, func() {}, err
	}
	if c.LogFile == "" {
		return log.PutHandler(ctx, log.NewHandler(func(*log.Message) {}, nil)), func() {}, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return ctx, func() {}, errors.Wrap(err, "Opening hook log")
	}
	h := log.Channel(log.NewHandler(
		log.Normal.Handler(log.File(f)).Handle,
		func() { f.Close() },
	), 256)
	ctx = log.PutHandler(ctx, h)
	ctx = log.PutFilter(ctx, log.SeverityFilter(sev))
	ctx = log.PutTag(ctx, "tattler")
	return ctx, h.Close, nil
}
