// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package repeat

import (
	"runtime"

	"github.com/JAlvarezJarreta/ensembl-anno/interval"
	"github.com/grailbio/base/traverse"
)

// Dispatch calls fn once for every slice, running at most parallelism calls
// at a time (runtime.NumCPU() if parallelism <= 0), and returns after all of
// them have finished.  Results are in slice order whatever order the calls
// complete in.
//
// There is no way to stop a batch once it has started.
func Dispatch(slices []interval.Slice, parallelism int, fn func(interval.Slice) SliceResult) []SliceResult {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	results := make([]SliceResult, len(slices))
	// fn never fails, so neither does the traversal.
	_ = traverse.Limit(parallelism).Each(len(slices), func(i int) error {
		results[i] = fn(slices[i])
		return nil
	})
	return results
}

// Counts tallies results by status.
type Counts [nStatus]int

// CountResults tallies results.
func CountResults(results []SliceResult) (c Counts) {
	for _, r := range results {
		c[r.Status]++
	}
	return
}

// Features returns the total number of features in results.
func Features(results []SliceResult) int {
	n := 0
	for _, r := range results {
		n += r.N
	}
	return n
}
