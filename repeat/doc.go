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

/*
Package repeat annotates repeats in a genome by running external programs
(RepeatMasker, dustmasker, trf) on slices of it.

Annotate cuts the genome into slices (see interval.NewSlices) and runs the
program on each slice in parallel.  For every slice, RunSlice writes the
slice's bases to a FASTA file, runs the program on it, converts the
program's output into gtf.Features, and writes them to a per-slice file,
removing everything else the program produced.  Once all slices are done,
Merge concatenates the per-slice files into a single annotation.gtf.

A tool directory with a non-empty annotation.gtf is considered finished, and
Annotate won't touch it again; delete the file to redo the work.

Slices are independent: each has its own files, and programs run with the
tool directory as their working directory instead of changing the working
directory of this process, so any number of slices can run at once.
*/
package repeat
