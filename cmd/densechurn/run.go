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
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var (
	runFile string
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVarP(&runFile, "file", "f", "", "Workload file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -f <workload.yaml>",
		Short: "Run a randomized workload",
		Long: `The run command executes the randomized workload described by a YAML
file against a dense Array or Table and reports the final state.

Example:
  densechurn run -f testdata/table.yaml
  densechurn run -f testdata/array.yaml --json
  densechurn run -f testdata/table.yaml --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(cmd.OutOrStdout(), cmd.ErrOrStderr(), runFile)
		},
	}
	return cmd
}

func runWorkload(out, errOut io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open workload: %w", err)
	}
	defer f.Close()

	w, err := loadWorkload(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	logger := newLogger(errOut)
	logger.Context = log.NewContext(nil).Str("workload", path).Value()
	r, err := w.run(logger)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(out, r)
	}
	return printResult(out, r)
}

func printResult(w io.Writer, r Result) error {
	_, err := fmt.Fprintf(w, `container:   %s
ops:         %s (inserts %s, updates %s, removes %s, rejected %s, compactions %s)
len/cap:     %s / %s
tombstones:  %s
footprint:   %s
`,
		r.Container,
		humanize.Comma(int64(r.Ops)),
		humanize.Comma(int64(r.Inserts)),
		humanize.Comma(int64(r.Updates)),
		humanize.Comma(int64(r.Removes)),
		humanize.Comma(int64(r.Rejected)),
		humanize.Comma(int64(r.Compactions)),
		humanize.Comma(int64(r.Len)),
		humanize.Comma(int64(r.Cap)),
		humanize.Comma(int64(r.Tombstones)),
		humanize.Bytes(r.Bytes))
	return err
}
