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
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
)

// RepeatMasker runs RepeatMasker against a repeat library or the built-in
// library of a species.
type RepeatMasker struct {
	// Path is the RepeatMasker executable.
	Path string
	// Library is a custom repeat library (-lib).  It takes precedence over
	// Species.
	Library string
	// Species selects a built-in library (-species).
	Species string
	// Engine is the search engine (-engine).
	Engine string
}

// DefaultRepeatMasker holds the settings used for fields left empty.
var DefaultRepeatMasker = RepeatMasker{
	Path:    "RepeatMasker",
	Species: "homo",
	Engine:  "crossmatch",
}

func (t *RepeatMasker) withDefaults() RepeatMasker {
	r := *t
	if r.Path == "" {
		r.Path = DefaultRepeatMasker.Path
	}
	if r.Species == "" {
		r.Species = DefaultRepeatMasker.Species
	}
	if r.Engine == "" {
		r.Engine = DefaultRepeatMasker.Engine
	}
	return r
}

func (t *RepeatMasker) Source() gtf.Source { return gtf.SourceRepeatMasker }
func (t *RepeatMasker) Dir() string        { return "repeatmasker_output" }
func (t *RepeatMasker) Suffix() string     { return ".rm.gtf" }
func (t *RepeatMasker) Exe() string        { return t.withDefaults().Path }
func (t *RepeatMasker) Stdout() bool       { return false }

// Command implements Tool.  Low-complexity masking is left to Dust.
func (t *RepeatMasker) Command(input, outDir string) []string {
	r := t.withDefaults()
	argv := []string{r.Path, "-nolow"}
	if r.Library != "" {
		argv = append(argv, "-lib", r.Library)
	} else {
		argv = append(argv, "-species", r.Species)
	}
	return append(argv, "-engine", r.Engine, "-dir", outDir, input)
}

// RawOutput implements Tool.  RepeatMasker writes <input>.out into -dir.
func (t *RepeatMasker) RawOutput(input string) string { return input + ".out" }

// Scratch implements Tool.
func (t *RepeatMasker) Scratch(input string) []string {
	var paths []string
	for _, ext := range []string{".masked", ".tbl", ".log", ".cat", ".cat.gz", ".ori.out"} {
		paths = append(paths, input+ext)
	}
	return paths
}

// A RepeatMasker .out data line starts with the Smith-Waterman score; the
// three header lines don't.
var rmDataLine = regexp.MustCompile(`^\s*\d+\s+`)

// Columns of a RepeatMasker .out line.
const (
	rmScore       = 0
	rmQueryStart  = 5
	rmQueryEnd    = 6
	rmStrand      = 8
	rmRepeatName  = 9
	rmRepeatClass = 10
	rmRepeatBegin = 11 // "(left)" on the complement strand
	rmRepeatEnd   = 12
	rmRepeatLeft  = 13 // the repeat start on the complement strand
	rmNumFields   = 15
)

// Parse implements Tool.
//
// A line such as
//
//   463 1.3 0.6 1.7 chr1 10001 10468 (248945954) + (CCCTAA)n Simple_repeat 1 463 (0) 1
//
// becomes a feature at 10001-10468 with repeat_start/repeat_end taken from
// the repeat begin/end columns.  On the complement strand (marked "C")
// those come from the "left" and end columns instead.  A trailing "*"
// (overlapping higher-scoring match) is ignored, and lines without exactly
// 15 columns are skipped.
func (t *RepeatMasker) Parse(r io.Reader, seqName string) ([]gtf.Feature, error) {
	var features []gtf.Feature
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !rmDataLine.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if fields[len(fields)-1] == "*" {
			fields = fields[:len(fields)-1]
		}
		if len(fields) != rmNumFields {
			continue
		}
		start, err1 := strconv.Atoi(fields[rmQueryStart])
		end, err2 := strconv.Atoi(fields[rmQueryEnd])
		if err1 != nil || err2 != nil {
			continue
		}
		strand := gtf.StrandFwd
		repeatStart, repeatEnd := fields[rmRepeatBegin], fields[rmRepeatEnd]
		if fields[rmStrand] != "+" {
			strand = gtf.StrandRev
			repeatStart = fields[rmRepeatLeft]
		}
		features = append(features, gtf.Feature{
			SeqName: seqName,
			Source:  gtf.SourceRepeatMasker,
			Start:   start,
			End:     end,
			Strand:  strand,
			ID:      len(features) + 1,
			Attrs: []gtf.Attr{
				{Key: "repeat_name", Value: fields[rmRepeatName]},
				{Key: "repeat_class", Value: fields[rmRepeatClass]},
				{Key: "repeat_start", Value: repeatStart},
				{Key: "repeat_end", Value: repeatEnd},
				{Key: "score", Value: fields[rmScore]},
			},
		})
	}
	return features, scanner.Err()
}
