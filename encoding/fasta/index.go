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
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// faiRecord is one line of a .fai file under construction.
type faiRecord struct {
	name      string
	offset    int64
	bases     int
	lineBases int
	lineWidth int
}

func (r *faiRecord) write(w *tsv.Writer) error {
	w.WriteString(r.name)
	w.WriteInt64(int64(r.bases))
	w.WriteInt64(r.offset)
	w.WriteInt64(int64(r.lineBases))
	w.WriteInt64(int64(r.lineWidth))
	return w.EndLine()
}

// GenerateIndex writes the .fai index of the FASTA data in "in" to "out".
// The result can be passed to NewIndexed.  The format is the one defined by
// "samtools faidx" (http://www.htslib.org/doc/faidx.html); line geometry is
// taken from the first line of each sequence.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w       = tsv.NewWriter(out)
		r       = bufio.NewReader(in)
		cur     *faiRecord
		nRead   int64
		nRecord int
	)
	for {
		fullLine, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return errors.E(err, "reading FASTA")
		}
		nRead += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if cur != nil {
				if e := cur.write(w); e != nil {
					return e
				}
				nRecord++
			}
			cur = &faiRecord{
				name:   strings.Split(string(line[1:]), " ")[0],
				offset: nRead,
			}
		default:
			if cur == nil {
				return errors.E("malformed FASTA file")
			}
			if cur.lineWidth == 0 {
				cur.lineWidth = len(fullLine)
				cur.lineBases = len(line)
			}
			cur.bases += len(line)
		}
		if err == io.EOF {
			break
		}
	}
	if cur != nil {
		if e := cur.write(w); e != nil {
			return e
		}
		nRecord++
	}
	if nRecord == 0 {
		return errors.E("empty FASTA file")
	}
	return w.Flush()
}
