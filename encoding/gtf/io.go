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
package gtf

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Writer writes features, one per line.
type Writer struct {
	w *tsv.Writer
	n int
}

// NewWriter creates a Writer.  Flush must be called after the last Write.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

// Write appends one feature.
func (w *Writer) Write(f *Feature) error {
	w.w.WriteString(f.SeqName)
	w.w.WriteString(f.Source.String())
	w.w.WriteString(FeatureType)
	w.w.WriteInt64(int64(f.Start))
	w.w.WriteInt64(int64(f.End))
	w.w.WriteString(".")
	w.w.WriteString(f.Strand.String())
	w.w.WriteString(".")
	w.w.WriteString(f.AttrString())
	w.n++
	return w.w.EndLine()
}

// N returns the number of features written so far.
func (w *Writer) N() int { return w.n }

// Flush flushes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// WriteFile creates path and writes features to it.
func WriteFile(ctx context.Context, path string, features []Feature) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "gtf.WriteFile", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := NewWriter(out.Writer(ctx))
	for i := range features {
		if err = w.Write(&features[i]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ScanFeatures calls fn for every line of path that parses as a feature of
// the given type.  Other lines are skipped.
func ScanFeatures(ctx context.Context, path, featureType string, fn func(f Feature) error) (err error) {
	if featureType != FeatureType {
		return errors.E(errors.Invalid, "gtf.ScanFeatures: unsupported feature type", featureType)
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		f, e := ParseLine(scanner.Text())
		if e != nil {
			continue
		}
		if err = fn(f); err != nil {
			return err
		}
	}
	return scanner.Err()
}
