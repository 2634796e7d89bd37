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

// Package gtf reads and writes repeat annotations in a GTF-like,
// tab-separated format:
//
//   seqname source repeat start end . strand . attributes
//
// where attributes is a list of `key "value";` pairs separated by single
// spaces, starting with repeat_id.  Coordinates are 1-based and inclusive.
package gtf

import (
	"fmt"
	"strconv"
	"strings"
)

// FeatureType is the feature column of every record written by this package.
const FeatureType = "repeat"

// IDKey is the attribute that carries Feature.ID.
const IDKey = "repeat_id"

// Source identifies the tool family that produced a feature.
type Source int

const (
	// SourceUnknown is the zero Source.
	SourceUnknown Source = iota
	// SourceRepeatMasker is the repeat-family masker.
	SourceRepeatMasker
	// SourceDust is the low-complexity masker.
	SourceDust
	// SourceTRF is the tandem-repeat finder.
	SourceTRF
)

var sourceNames = [...]string{"unknown", "RepeatMasker", "Dust", "TRF"}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return sourceNames[SourceUnknown]
	}
	return sourceNames[s]
}

// ParseSource is the inverse of Source.String.
func ParseSource(name string) (Source, error) {
	for i, n := range sourceNames[1:] {
		if n == name {
			return Source(i + 1), nil
		}
	}
	return SourceUnknown, fmt.Errorf("gtf.ParseSource: unknown source %q", name)
}

// Strand is the strand column.
type Strand byte

const (
	StrandUnknown Strand = '.'
	StrandFwd     Strand = '+'
	StrandRev     Strand = '-'
)

func (s Strand) String() string { return string(s) }

// Attr is one attribute of a feature.
type Attr struct {
	Key, Value string
}

// Feature is one repeat annotation.
type Feature struct {
	SeqName string
	Source  Source
	// Start and End are 1-based and inclusive.
	Start, End int
	Strand     Strand
	// ID is the ordinal of the feature within the slice that produced it.  It
	// is not unique within a merged file.
	ID    int
	Attrs []Attr
}

// Attr returns the value of the given attribute, and whether it is present.
func (f *Feature) Attr(key string) (string, bool) {
	if key == IDKey {
		return strconv.Itoa(f.ID), true
	}
	for _, a := range f.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// AttrString renders the attribute column.
func (f *Feature) AttrString() string {
	var b strings.Builder
	writeAttr(&b, IDKey, strconv.Itoa(f.ID))
	for _, a := range f.Attrs {
		b.WriteByte(' ')
		writeAttr(&b, a.Key, a.Value)
	}
	return b.String()
}

func writeAttr(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(` "`)
	b.WriteString(value)
	b.WriteString(`";`)
}

// ParseLine parses one line of a file written by Writer.
func ParseLine(line string) (Feature, error) {
	var f Feature
	cols := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(cols) != 9 {
		return f, fmt.Errorf("gtf.ParseLine: expected 9 columns, got %d: %q", len(cols), line)
	}
	if cols[2] != FeatureType {
		return f, fmt.Errorf("gtf.ParseLine: unexpected feature type %q", cols[2])
	}
	var err error
	f.SeqName = cols[0]
	if f.Source, err = ParseSource(cols[1]); err != nil {
		return f, err
	}
	if f.Start, err = strconv.Atoi(cols[3]); err != nil {
		return f, fmt.Errorf("gtf.ParseLine: bad start %q", cols[3])
	}
	if f.End, err = strconv.Atoi(cols[4]); err != nil {
		return f, fmt.Errorf("gtf.ParseLine: bad end %q", cols[4])
	}
	switch cols[6] {
	case "+":
		f.Strand = StrandFwd
	case "-":
		f.Strand = StrandRev
	case ".":
		f.Strand = StrandUnknown
	default:
		return f, fmt.Errorf("gtf.ParseLine: bad strand %q", cols[6])
	}
	attrs, err := parseAttrs(cols[8])
	if err != nil {
		return f, err
	}
	for _, a := range attrs {
		if a.Key == IDKey {
			if f.ID, err = strconv.Atoi(a.Value); err != nil {
				return f, fmt.Errorf("gtf.ParseLine: bad %s %q", IDKey, a.Value)
			}
			continue
		}
		f.Attrs = append(f.Attrs, a)
	}
	return f, nil
}

// parseAttrs splits `k1 "v1"; k2 "v2";` into pairs.  Values may not contain
// double quotes.
func parseAttrs(s string) ([]Attr, error) {
	var attrs []Attr
	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return attrs, nil
		}
		sp := strings.IndexByte(s, ' ')
		if sp <= 0 || len(s) < sp+2 || s[sp+1] != '"' {
			return nil, fmt.Errorf("gtf: malformed attributes %q", s)
		}
		key := s[:sp]
		rest := s[sp+2:]
		q := strings.Index(rest, `";`)
		if q < 0 {
			return nil, fmt.Errorf("gtf: unterminated attribute %q", s)
		}
		attrs = append(attrs, Attr{Key: key, Value: rest[:q]})
		s = rest[q+2:]
	}
}
