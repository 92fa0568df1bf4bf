// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config reads the optional YAML defaults file of the butcher
// front-end. Every field corresponds to a command-line option;
// explicitly given flags win over file values.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config holds per-user defaults. Pointer fields distinguish "unset"
// from an explicit false/zero.
type Config struct {
	// Bexec is the path of the runner executable.
	Bexec string `yaml:"bexec"`
	// Color enables or disables color output.
	Color *bool `yaml:"color"`
	// Verbose is the default verbosity level (0..4).
	Verbose int `yaml:"verbose"`
	// Debugger is a debugger command line to wrap the runner with.
	Debugger string `yaml:"debugger"`
	// SuiteMatch and TestMatch are the default selection regexes.
	SuiteMatch string `yaml:"suite_match"`
	TestMatch  string `yaml:"test_match"`
}

// Load reads and decodes the defaults file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if cfg.Verbose < 0 {
		return nil, errors.Errorf("config %s: negative verbosity", path)
	}
	return &cfg, nil
}
