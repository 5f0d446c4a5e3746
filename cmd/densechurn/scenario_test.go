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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		r := arrayScenario(discardLogger())
		require.True(t, r.Passed, r.Detail)
		require.Contains(t, r.Detail, "len: 11, cap: 20")
	})

	t.Run("table", func(t *testing.T) {
		r := tableScenario(discardLogger())
		require.True(t, r.Passed, r.Detail)
		require.Equal(t, "len=10 cap=10 tombstones=0", r.Detail)
	})
}

func TestScenarioCommand(t *testing.T) {
	t.Cleanup(func() {
		jsonOut = false
		logLevel = "info"
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"scenario", "--log-level", "debug"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "PASS array")
	require.Contains(t, out.String(), "PASS table")
	require.Contains(t, errOut.String(), "dense: array resize")
	require.Contains(t, errOut.String(), "dense: table reused tombstone")

	out.Reset()
	rootCmd.SetArgs([]string{"scenario", "--json", "--log-level", "error"})
	require.NoError(t, rootCmd.Execute())
	var results []scenarioResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		require.True(t, r.Passed, r.Name)
	}
}
