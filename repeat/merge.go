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
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// AnnotationFile is the name of the merged output in a tool's directory.
const AnnotationFile = "annotation.gtf"

// HasOutput reports whether path holds at least one repeat feature from
// source.  A directory whose annotation file passes this check is considered
// done.
func HasOutput(ctx context.Context, path string, source gtf.Source) bool {
	found := errors.New("found")
	err := gtf.ScanFeatures(ctx, path, gtf.FeatureType, func(f gtf.Feature) error {
		if f.Source == source {
			return found
		}
		return nil
	})
	return err == found
}

// Merge concatenates the per-slice feature files in dir (those whose names
// end in suffix) into dir/AnnotationFile, in file name order, and returns
// the path written and the number of lines in it.
//
// Feature IDs are per slice, so the merged file usually repeats them.  With
// renumber, IDs are rewritten to count up from 1 across the whole file.
// The per-slice files are left in place.
func Merge(ctx context.Context, dir, suffix string, renumber bool) (path string, n int, err error) {
	path = filepath.Join(dir, AnnotationFile)
	parts, err := listParts(ctx, dir, suffix)
	if err != nil {
		return "", 0, err
	}
	log.Printf("merging %d %s files into %s", len(parts), suffix, path)

	// Write next to the destination and rename at the end, so that an
	// interrupted merge is never mistaken for a finished one.
	tmpPath := path + ".partial"
	out, err := file.Create(ctx, tmpPath)
	if err != nil {
		return "", 0, errors.E(err, "creating", tmpPath)
	}
	w := bufio.NewWriter(out.Writer(ctx))
	var gw *gtf.Writer
	if renumber {
		gw = gtf.NewWriter(w)
	}
	for _, part := range parts {
		var m int
		if m, err = appendPart(ctx, w, gw, part, n); err != nil {
			break
		}
		n += m
	}
	if err == nil && gw != nil {
		err = gw.Flush()
	}
	if err == nil {
		err = w.Flush()
	}
	if e := out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = file.Remove(ctx, tmpPath)
		return "", 0, err
	}
	return path, n, nil
}

func listParts(ctx context.Context, dir, suffix string) ([]string, error) {
	var parts []string
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		p := lister.Path()
		if lister.IsDir() || !strings.HasSuffix(p, suffix) || filepath.Base(p) == AnnotationFile {
			continue
		}
		parts = append(parts, p)
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, "listing", dir)
	}
	sort.Strings(parts)
	return parts, nil
}

// appendPart copies the lines of part to w, or, if gw is not nil, rewrites
// them through gw with IDs following base.  It returns the number of lines
// written.
func appendPart(ctx context.Context, w io.Writer, gw *gtf.Writer, part string, base int) (n int, err error) {
	in, err := file.Open(ctx, part)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if gw == nil {
			if _, err = io.WriteString(w, line+"\n"); err != nil {
				return n, err
			}
			n++
			continue
		}
		f, e := gtf.ParseLine(line)
		if e != nil {
			log.Printf("%s: skipping malformed line %q: %v", part, line, e)
			continue
		}
		n++
		f.ID = base + n
		if err = gw.Write(&f); err != nil {
			return n, err
		}
	}
	return n, scanner.Err()
}
