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
	"io"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
	"github.com/JAlvarezJarreta/ensembl-anno/interval"
)

// Tool adapts one external repeat-detection program.  A Tool only describes
// how to invoke the program and how to read its output; RunSlice does the
// work.
type Tool interface {
	// Source is the family recorded in every feature the tool produces.
	Source() gtf.Source
	// Dir is the name of the tool's directory under Opts.OutDir.
	Dir() string
	// Suffix is appended to interval.Slice.Name() to name the slice's
	// canonical feature file.
	Suffix() string
	// Exe is the program name or path.
	Exe() string
	// Command returns the argv that processes input, a single-sequence FASTA
	// file in outDir.  The program runs with outDir as its working
	// directory.
	Command(input, outDir string) []string
	// RawOutput is the file the program's results are read from.
	RawOutput(input string) string
	// Stdout reports whether the program prints its results, in which case
	// RunSlice saves standard output to RawOutput.
	Stdout() bool
	// Scratch lists other files a run may leave behind.
	Scratch(input string) []string
	// Parse reads raw output and returns features on seqName, numbered from
	// 1.  Lines that don't match the expected format are skipped.
	Parse(r io.Reader, seqName string) ([]gtf.Feature, error)
}

// SequenceSource fetches bases of the 0-based half-open interval [start,
// end).  It must be safe for concurrent use; fasta.Fasta qualifies.
type SequenceSource interface {
	Get(seqName string, start, end uint64) (string, error)
}

// Status is the outcome of processing one slice.
type Status int

const (
	// StatusOK means the tool succeeded and reported at least one feature.
	StatusOK Status = iota
	// StatusEmpty means the tool succeeded and reported nothing.
	StatusEmpty
	// StatusToolError means the program could not be started or exited with
	// a nonzero status.  Whatever output it left is still used.
	StatusToolError
	// StatusFailed means the slice could not be set up or its results could
	// not be stored.
	StatusFailed
	nStatus
)

var statusNames = [...]string{"ok", "empty", "tool-error", "failed"}

func (s Status) String() string { return statusNames[s] }

// SliceResult reports how one slice went.  Failures never stop a batch; they
// are only visible here and in the log.
type SliceResult struct {
	Slice interval.Slice
	// Path is the canonical feature file.  It exists unless Status is
	// StatusFailed.
	Path   string
	Status Status
	// N is the number of features written.
	N int
	// ExitCode is set when Status is StatusToolError; -1 if the program never
	// ran to completion.
	ExitCode int
	Err      error
}
