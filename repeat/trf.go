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
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
)

// TRFParams are the positional alignment parameters of trf.
type TRFParams struct {
	Match, Mismatch, Delta int
	// PM and PI are the match and indel probabilities, in percent.
	PM, PI    int
	MinScore  int
	MaxPeriod int
}

// DefaultTRFParams are the values recommended by the TRF authors.
var DefaultTRFParams = TRFParams{
	Match:     2,
	Mismatch:  5,
	Delta:     7,
	PM:        80,
	PI:        10,
	MinScore:  40,
	MaxPeriod: 500,
}

func (p TRFParams) args() []string {
	return []string{
		strconv.Itoa(p.Match), strconv.Itoa(p.Mismatch), strconv.Itoa(p.Delta),
		strconv.Itoa(p.PM), strconv.Itoa(p.PI), strconv.Itoa(p.MinScore), strconv.Itoa(p.MaxPeriod),
	}
}

// TRF finds tandem repeats with Tandem Repeats Finder.
type TRF struct {
	// Path is the trf executable.
	Path string
	// Params defaults to DefaultTRFParams when zero.
	Params TRFParams
}

func (t *TRF) Source() gtf.Source { return gtf.SourceTRF }
func (t *TRF) Dir() string        { return "trf_output" }
func (t *TRF) Suffix() string     { return ".trf.gtf" }
func (t *TRF) Stdout() bool       { return false }

func (t *TRF) Exe() string {
	if t.Path == "" {
		return "trf"
	}
	return t.Path
}

func (t *TRF) params() TRFParams {
	if t.Params == (TRFParams{}) {
		return DefaultTRFParams
	}
	return t.Params
}

// Command implements Tool.  The input goes first, followed by the
// parameters; -d asks for the .dat file and -h suppresses the HTML report.
func (t *TRF) Command(input, outDir string) []string {
	argv := []string{t.Exe(), input}
	argv = append(argv, t.params().args()...)
	return append(argv, "-d", "-h")
}

// RawOutput implements Tool.  trf names its output after the input and the
// parameters and writes it to the working directory, which RunSlice sets to
// the input's directory.
func (t *TRF) RawOutput(input string) string {
	return filepath.Join(filepath.Dir(input), filepath.Base(input)+"."+strings.Join(t.params().args(), ".")+".dat")
}

func (t *TRF) Scratch(input string) []string { return nil }

var trfDataLine = regexp.MustCompile(`^\d+`)

// Columns of a trf .dat line.
const (
	trfStart        = 0
	trfEnd          = 1
	trfPeriod       = 2
	trfCopyNumber   = 3
	trfPercentMatch = 5
	trfScore        = 7
	trfConsensus    = 13
	trfNumFields    = 15
)

// keepTandemRepeat decides which trf hits are reported: short-period repeats
// with a low score must be nearly perfect and have more than two copies,
// everything else needs a score of at least 50.
func keepTandemRepeat(period, copyNumber, percentMatch, score float64) bool {
	return (score < 50 && percentMatch >= 80 && copyNumber > 2 && period < 10) ||
		(copyNumber >= 2 && percentMatch >= 70 && score >= 50)
}

// Parse implements Tool.
func (t *TRF) Parse(r io.Reader, seqName string) ([]gtf.Feature, error) {
	var features []gtf.Feature
	scanner := bufio.NewScanner(r)
	// The last column holds the whole repeat, which can be long.
	scanner.Buffer(nil, 64<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !trfDataLine.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != trfNumFields {
			continue
		}
		var (
			vals [4]float64
			err  error
		)
		for i, col := range []int{trfPeriod, trfCopyNumber, trfPercentMatch, trfScore} {
			if vals[i], err = strconv.ParseFloat(fields[col], 64); err != nil {
				break
			}
		}
		if err != nil {
			continue
		}
		period, copyNumber, percentMatch, score := vals[0], vals[1], vals[2], vals[3]
		if !keepTandemRepeat(period, copyNumber, percentMatch, score) {
			continue
		}
		start, err1 := strconv.Atoi(fields[trfStart])
		end, err2 := strconv.Atoi(fields[trfEnd])
		if err1 != nil || err2 != nil {
			continue
		}
		features = append(features, gtf.Feature{
			SeqName: seqName,
			Source:  gtf.SourceTRF,
			Start:   start,
			End:     end,
			Strand:  gtf.StrandFwd,
			ID:      len(features) + 1,
			// The score is kept as trf printed it, "45" rather than "45.0".
			Attrs: []gtf.Attr{
				{Key: "score", Value: fields[trfScore]},
				{Key: "repeat_consensus", Value: fields[trfConsensus]},
			},
		})
	}
	return features, scanner.Err()
}
