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
package interval

import (
	"fmt"
	"strconv"
)

// SeqRegion is one entry of a genome's sequence-length inventory.
type SeqRegion struct {
	Name   string
	Length int
}

// Slice is the 0-based half-open interval [Start, End) of sequence SeqName.
// It is the unit of parallel work.
type Slice struct {
	SeqName    string
	Start, End int
}

// Len returns the number of bases in the slice.
func (s Slice) Len() int { return s.End - s.Start }

// Name returns a file-name stem that is unique to the slice.
func (s Slice) Name() string {
	return s.SeqName + ".rs" + strconv.Itoa(s.Start) + ".re" + strconv.Itoa(s.End)
}

func (s Slice) String() string {
	return fmt.Sprintf("%s:%d-%d", s.SeqName, s.Start, s.End)
}

// NewSlices partitions every region at least minLength bases long into
// windows of at most sliceSize bases.  Regions are visited in the given
// order and windows within a region in ascending order; the last window of
// a region may be shorter than sliceSize.
//
// With overlap == 0 the windows of a region are disjoint and cover it
// exactly.  A positive overlap makes each window after the first start
// overlap bases before the end of the previous one.
func NewSlices(regions []SeqRegion, sliceSize, overlap, minLength int) ([]Slice, error) {
	if sliceSize <= 0 {
		return nil, fmt.Errorf("interval.NewSlices: slice size must be positive, got %d", sliceSize)
	}
	if overlap < 0 || overlap >= sliceSize {
		return nil, fmt.Errorf("interval.NewSlices: overlap %d must be in [0, %d)", overlap, sliceSize)
	}
	var slices []Slice
	for _, r := range regions {
		if r.Length < minLength || r.Length <= 0 {
			continue
		}
		for start := 0; ; start -= overlap {
			end := start + sliceSize
			if end > r.Length {
				end = r.Length
			}
			slices = append(slices, Slice{SeqName: r.Name, Start: start, End: end})
			if end == r.Length {
				break
			}
			start = end
		}
	}
	return slices, nil
}
