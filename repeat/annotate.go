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
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/fasta"
	"github.com/JAlvarezJarreta/ensembl-anno/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// Opts configures Annotate.
type Opts struct {
	// OutDir is the root output directory.  Each tool writes to its own
	// subdirectory, see Tool.Dir.
	OutDir string
	// SliceSize is the maximum width of a slice.
	SliceSize int
	// Overlap is the number of bases consecutive slices of a sequence share.
	Overlap int
	// MinLength is the length below which sequences are skipped.
	MinLength int
	// Parallelism is the number of slices processed at once; 0 means
	// runtime.NumCPU().
	Parallelism int
	// SeqNames, if not empty, restricts the run to these sequences.
	SeqNames []string
	// GenomicCoords shifts feature coordinates by the slice start.  By
	// default features keep the slice-relative coordinates the tools report.
	GenomicCoords bool
	// Renumber makes repeat_id unique within the merged file.
	Renumber bool
	// Env is the environment used to look up tool executables.  Nil means
	// the environment of this process.
	Env map[string]string
}

// DefaultOpts cuts the genome into 1 Mbp slices and skips sequences shorter
// than 5 kbp.
var DefaultOpts = Opts{
	SliceSize:   1000000,
	Overlap:     0,
	MinLength:   5000,
	Parallelism: 0,
}

// Summary describes a call to Annotate.
type Summary struct {
	Source string
	// Path is the merged annotation file.
	Path string
	// Skipped is set when Path already held results and nothing was run.
	Skipped bool
	// Results has one entry per slice.
	Results []SliceResult
	// Features is the number of lines in Path; unset when Skipped.
	Features int
}

// CheckExe returns the full path of the executable name, looked up in the
// PATH of env (the process environment if env is nil).  Names containing a
// path separator are checked as they are.
func CheckExe(env map[string]string, name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		info, err := os.Stat(name)
		if err != nil || info.IsDir() || info.Mode()&0111 == 0 {
			return "", errors.E(errors.NotExist, "executable not found:", name)
		}
		return filepath.Abs(name)
	}
	if env == nil {
		env = envvar.SliceToMap(os.Environ())
	}
	path, err := lookpath.Look(env, name)
	if err != nil {
		return "", errors.E(errors.NotExist, "executable not found:", name, err)
	}
	// Tools run in their output directory, so relative paths won't do.
	return filepath.Abs(path)
}

// Annotate runs tool over every slice of the genome in genomePath and merges
// the results into <opts.OutDir>/<tool.Dir()>/annotation.gtf.
//
// Annotate does nothing if that file already holds features from an earlier
// run.  Otherwise the whole genome is processed again; there is no
// checkpointing at slice level.  Failures of individual slices don't stop
// the run, and are only reported in Summary.Results.  The returned error is
// reserved for problems that make the run impossible: a missing executable,
// an unreadable genome, bad options.
func Annotate(ctx context.Context, genomePath string, tool Tool, opts Opts) (Summary, error) {
	summary := Summary{Source: tool.Source().String()}
	if _, err := CheckExe(opts.Env, tool.Exe()); err != nil {
		return summary, err
	}
	// The programs run inside outDir, so every path given to them must be
	// absolute.
	outDir, err := filepath.Abs(filepath.Join(opts.OutDir, tool.Dir()))
	if err != nil {
		return summary, errors.E(err, "output directory", opts.OutDir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return summary, errors.E(err, "creating", outDir)
	}
	summary.Path = filepath.Join(outDir, AnnotationFile)
	if HasOutput(ctx, summary.Path, tool.Source()) {
		log.Printf("%s: %s already has results, skipping", summary.Source, summary.Path)
		summary.Skipped = true
		return summary, nil
	}

	genome, err := fasta.OpenFile(ctx, genomePath)
	if err != nil {
		return summary, err
	}
	defer func() {
		if e := genome.Close(ctx); e != nil {
			log.Error.Printf("closing %s: %v", genomePath, e)
		}
	}()
	regions, err := fasta.Lengths(genome, opts.MinLength)
	if err != nil {
		return summary, err
	}
	regions = selectRegions(regions, opts.SeqNames)
	slices, err := interval.NewSlices(regions, opts.SliceSize, opts.Overlap, opts.MinLength)
	if err != nil {
		return summary, err
	}
	log.Printf("%s: %d sequences, %d slices, output in %s", summary.Source, len(regions), len(slices), outDir)

	summary.Results = Dispatch(slices, opts.Parallelism, func(s interval.Slice) SliceResult {
		return RunSlice(ctx, tool, s, genome, outDir, opts)
	})
	counts := CountResults(summary.Results)
	log.Printf("%s: slices: %d ok, %d empty, %d tool errors, %d failed; %d features",
		summary.Source, counts[StatusOK], counts[StatusEmpty], counts[StatusToolError], counts[StatusFailed],
		Features(summary.Results))

	if _, summary.Features, err = Merge(ctx, outDir, tool.Suffix(), opts.Renumber); err != nil {
		return summary, err
	}
	log.Printf("%s: wrote %d features to %s", summary.Source, summary.Features, summary.Path)
	return summary, nil
}

func selectRegions(regions []interval.SeqRegion, names []string) []interval.SeqRegion {
	if len(names) == 0 {
		return regions
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var selected []interval.SeqRegion
	for _, r := range regions {
		if want[r.Name] {
			selected = append(selected, r)
			delete(want, r.Name)
		}
	}
	for n := range want {
		log.Printf("sequence %s is missing or shorter than the minimum length, ignoring it", n)
	}
	return selected
}
