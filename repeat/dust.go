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

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
)

// Dust finds low-complexity regions with dustmasker.
type Dust struct {
	// Path is the dustmasker executable.
	Path string
}

func (t *Dust) Source() gtf.Source { return gtf.SourceDust }
func (t *Dust) Dir() string        { return "dust_output" }
func (t *Dust) Suffix() string     { return ".dust.gtf" }
func (t *Dust) Stdout() bool       { return true }

func (t *Dust) Exe() string {
	if t.Path == "" {
		return "dustmasker"
	}
	return t.Path
}

func (t *Dust) Command(input, outDir string) []string {
	return []string{t.Exe(), "-in", input}
}

func (t *Dust) RawOutput(input string) string { return input + ".dust" }

func (t *Dust) Scratch(input string) []string { return nil }

// dustmasker's default "interval" output has one "<start> - <end>" line per
// masked region, 0-based and inclusive.
var dustInterval = regexp.MustCompile(`(\d+) - (\d+)`)

// Parse implements Tool.
func (t *Dust) Parse(r io.Reader, seqName string) ([]gtf.Feature, error) {
	var features []gtf.Feature
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := dustInterval.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		start, err1 := strconv.Atoi(m[1])
		end, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		features = append(features, gtf.Feature{
			SeqName: seqName,
			Source:  gtf.SourceDust,
			Start:   start + 1,
			End:     end + 1,
			Strand:  gtf.StrandFwd,
			ID:      len(features) + 1,
		})
	}
	return features, scanner.Err()
}
