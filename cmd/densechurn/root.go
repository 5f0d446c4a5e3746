// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
	jsonOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "densechurn",
	Short: "Exercise dense arrays and hash tables",
	Long: `densechurn drives the dense Array and Table containers through fixed
scenarios or randomized workloads described in YAML, and reports the
resulting length, capacity, tombstones and memory footprint.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "Log level (debug traces container resizes and compactions)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns a logger writing to w at the level given by --log-level.
func newLogger(w io.Writer) *log.Logger {
	return &log.Logger{
		Level:      log.ParseLevel(logLevel),
		TimeField:  "time",
		TimeFormat: "15:04:05",
		Writer:     &log.IOWriter{Writer: w},
	}
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
