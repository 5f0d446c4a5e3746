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
	"errors"
	"fmt"
	"io"

	"github.com/cockroachdb/dense"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newScenarioCmd())
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run the reference scenarios",
		Long: `The scenario command runs two fixed scenarios and reports whether each
behaved as expected:

  array  inserts 0..10 at the front of an array of capacity 10, which must
         end with length 11 and capacity 20.
  table  fills a table of capacity 10 with keys "a".."j", checks that an
         11th key is rejected, then removes "a" and inserts the 11th key
         into the freed slot.

Example:
  densechurn scenario
  densechurn scenario --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

type scenarioResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func runScenarios(out, errOut io.Writer) error {
	logger := newLogger(errOut)
	results := []scenarioResult{
		arrayScenario(logger),
		tableScenario(logger),
	}

	if jsonOut {
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			status := "PASS"
			if !r.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%s %-6s %s\n", status, r.Name, r.Detail)
		}
	}

	for _, r := range results {
		if !r.Passed {
			return fmt.Errorf("scenario %s failed", r.Name)
		}
	}
	return nil
}

func arrayScenario(logger *log.Logger) scenarioResult {
	r := scenarioResult{Name: "array"}
	a, err := dense.NewArray[int](10, dense.WithArrayLogger[int](logger))
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	defer a.Close(nil)

	for i := 0; i <= 10; i++ {
		if err := a.Insert(0, i); err != nil {
			r.Detail = fmt.Sprintf("insert %d: %v", i, err)
			return r
		}
	}
	r.Passed = a.Len() == 11 && a.Cap() == 20
	r.Detail = a.String()
	return r
}

func tableScenario(logger *log.Logger) scenarioResult {
	r := scenarioResult{Name: "table"}
	t, err := dense.NewTable[string, int](10, dense.HashString, dense.Equal[string],
		dense.WithTableLogger[string, int](logger))
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	defer t.Close(nil, nil)

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		if err := t.Insert(key, 10+i, nil); err != nil {
			r.Detail = fmt.Sprintf("insert %q: %v", key, err)
			return r
		}
	}
	if err := t.Insert("extra", 20, nil); !errors.Is(err, dense.ErrNoRoom) {
		r.Detail = fmt.Sprintf("insert \"extra\" into a full table: got %v, expected %v", err, dense.ErrNoRoom)
		return r
	}
	if err := t.Remove("a", nil, nil); err != nil {
		r.Detail = fmt.Sprintf("remove \"a\": %v", err)
		return r
	}
	if err := t.Insert("extra", 20, nil); err != nil {
		r.Detail = fmt.Sprintf("insert \"extra\" after removal: %v", err)
		return r
	}

	v, ok := t.Get("extra")
	r.Passed = ok && v == 20 && !t.Contains("a") && t.Len() == 10
	r.Detail = fmt.Sprintf("len=%d cap=%d tombstones=%d", t.Len(), t.Cap(), t.Tombstones())
	return r
}
