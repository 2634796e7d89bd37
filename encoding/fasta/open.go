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
	"bytes"
	"context"
	"io"

	"github.com/JAlvarezJarreta/ensembl-anno/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// File is an indexed Fasta backed by an open file.  It must be closed after
// use.
type File struct {
	Fasta
	f file.File
}

// OpenFile opens the FASTA file at path for random access.  The index is read
// from path+".fai" when that file exists; otherwise it is generated by
// scanning the FASTA file once.
func OpenFile(ctx context.Context, path string) (*File, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "fasta.OpenFile %s", path)
	}
	r := f.Reader(ctx)
	index, err := readIndex(ctx, path+".fai")
	if err != nil {
		log.Printf("fasta.OpenFile %s: no usable index (%v), generating one", path, err)
		var buf bytes.Buffer
		if err = GenerateIndex(&buf, r); err != nil {
			_ = f.Close(ctx)
			return nil, errors.Wrapf(err, "fasta.OpenFile %s", path)
		}
		if _, err = r.Seek(0, io.SeekStart); err != nil {
			_ = f.Close(ctx)
			return nil, errors.Wrapf(err, "fasta.OpenFile %s", path)
		}
		index = buf.Bytes()
	}
	fa, err := NewIndexed(r, bytes.NewReader(index))
	if err != nil {
		_ = f.Close(ctx)
		return nil, errors.Wrapf(err, "fasta.OpenFile %s", path)
	}
	return &File{Fasta: fa, f: f}, nil
}

func readIndex(ctx context.Context, path string) (data []byte, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var buf bytes.Buffer
	if _, err = io.Copy(&buf, in.Reader(ctx)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close closes the underlying file.
func (f *File) Close(ctx context.Context) error {
	return f.f.Close(ctx)
}

// Lengths lists the sequences of fa that are at least minLength bases long,
// in FASTA order.
func Lengths(fa Fasta, minLength int) ([]interval.SeqRegion, error) {
	var regions []interval.SeqRegion
	for _, name := range fa.SeqNames() {
		n, err := fa.Len(name)
		if err != nil {
			return nil, err
		}
		if int(n) < minLength {
			continue
		}
		regions = append(regions, interval.SeqRegion{Name: name, Length: int(n)})
	}
	return regions, nil
}
