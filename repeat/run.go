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
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
	"github.com/JAlvarezJarreta/ensembl-anno/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// fastaLineWidth is the number of bases per line of slice FASTA files.
const fastaLineWidth = 60

// RunSlice runs tool on one slice of the genome and writes the slice's
// features to outDir/<slice name><tool suffix>.  All the other files the run
// creates in outDir are removed before RunSlice returns.
//
// Nothing that goes wrong here is returned as an error; the outcome is in
// the result.  A program that fails or leaves no output yields an empty
// feature file, as does one that finds nothing.
func RunSlice(ctx context.Context, tool Tool, s interval.Slice, seqs SequenceSource, outDir string, opts Opts) (res SliceResult) {
	res.Slice = s
	// The program runs in outDir; a relative input path would not resolve.
	if dir, err := filepath.Abs(outDir); err == nil {
		outDir = dir
	}
	stem := filepath.Join(outDir, s.Name())
	input := stem + ".fa"
	res.Path = stem + tool.Suffix()
	defer func() {
		if res.Status == StatusFailed {
			log.Error.Printf("%v: %s: %v", tool.Source(), s, res.Err)
		}
	}()

	seq, err := seqs.Get(s.SeqName, uint64(s.Start), uint64(s.End))
	if err != nil {
		res.Status, res.Err = StatusFailed, errors.E(err, "fetching sequence of", s.String())
		return
	}
	defer func() {
		if err := removeScratch(ctx, tool, input); err != nil {
			log.Error.Printf("%v: %s: %v", tool.Source(), s, err)
		}
	}()
	if err = writeSliceFasta(ctx, input, s.SeqName, seq); err != nil {
		res.Status, res.Err = StatusFailed, err
		return
	}

	res.Status = StatusEmpty
	if err = runTool(ctx, tool, input, outDir, opts.Env); err != nil {
		res.Status, res.Err = StatusToolError, err
		res.ExitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		}
		log.Printf("%v: %s: %v", tool.Source(), s, err)
	}

	features, err := parseRawOutput(ctx, tool, input, s.SeqName)
	if err != nil {
		// Whatever was read before the error is kept.
		log.Printf("%v: %s: reading %s: %v", tool.Source(), s, tool.RawOutput(input), err)
	}
	if opts.GenomicCoords {
		for i := range features {
			features[i].Start += s.Start
			features[i].End += s.Start
		}
	}
	if err = gtf.WriteFile(ctx, res.Path, features); err != nil {
		res.Status, res.Err = StatusFailed, err
		return
	}
	res.N = len(features)
	if res.Status == StatusEmpty && res.N > 0 {
		res.Status = StatusOK
	}
	return
}

func writeSliceFasta(ctx context.Context, path, seqName, seq string) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "creating", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	var buf bytes.Buffer
	buf.Grow(len(seq) + len(seq)/fastaLineWidth + len(seqName) + 3)
	buf.WriteByte('>')
	buf.WriteString(seqName)
	buf.WriteByte('\n')
	for len(seq) > 0 {
		n := fastaLineWidth
		if n > len(seq) {
			n = len(seq)
		}
		buf.WriteString(seq[:n])
		buf.WriteByte('\n')
		seq = seq[n:]
	}
	_, err = out.Writer(ctx).Write(buf.Bytes())
	return
}

// runTool runs the program to completion in outDir.  There is no timeout.
func runTool(ctx context.Context, tool Tool, input, outDir string, env map[string]string) (err error) {
	argv := tool.Command(input, outDir)
	if exe, e := CheckExe(env, argv[0]); e == nil {
		argv[0] = exe
	}
	log.Debug.Printf("%v: %s", tool.Source(), strings.Join(argv, " "))
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = outDir
	var stderr tailBuffer
	cmd.Stderr = &stderr
	if tool.Stdout() {
		var out file.File
		if out, err = file.Create(ctx, tool.RawOutput(input)); err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, out, &err)
		cmd.Stdout = out.Writer(ctx)
	}
	if err = cmd.Run(); err != nil && stderr.Len() > 0 {
		log.Debug.Printf("%v: %s stderr:\n%s", tool.Source(), filepath.Base(input), stderr.String())
	}
	return err
}

func parseRawOutput(ctx context.Context, tool Tool, input, seqName string) (features []gtf.Feature, err error) {
	in, err := file.Open(ctx, tool.RawOutput(input))
	if err != nil {
		// No output.  Not an error as far as the batch is concerned.
		return nil, nil
	}
	defer file.CloseAndReport(ctx, in, &err)
	return tool.Parse(in.Reader(ctx), seqName)
}

// removeScratch removes the slice FASTA and everything the tool may have
// written next to it, except the feature file.  It returns the first error
// other than a missing file.
func removeScratch(ctx context.Context, tool Tool, input string) error {
	var once errors.Once
	paths := append([]string{input, tool.RawOutput(input)}, tool.Scratch(input)...)
	for _, path := range paths {
		if err := file.Remove(ctx, path); err != nil && !os.IsNotExist(err) && !errors.Is(errors.NotExist, err) {
			once.Set(errors.E(err, "removing", path))
		}
	}
	return once.Err()
}

// tailBuffer keeps the last few KB written to it.
type tailBuffer struct {
	bytes.Buffer
}

const tailBufferSize = 4 << 10

func (b *tailBuffer) Write(p []byte) (int, error) {
	n, _ := b.Buffer.Write(p)
	if extra := b.Len() - tailBufferSize; extra > 0 {
		b.Next(extra)
	}
	return n, nil
}
