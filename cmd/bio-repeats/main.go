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
Command bio-repeats annotates the repeats of a genome.  It runs RepeatMasker,
dustmasker or Tandem Repeats Finder over slices of the genome in parallel and
merges their results into one GTF file per tool.

  bio-repeats all -out /data/anno -parallelism 32 genome.fa
  bio-repeats trf -trf-params 2,7,7,80,10,50,500 genome.fa

Run "bio-repeats help <command>" for the flags of each command.
*/
package main

import "github.com/JAlvarezJarreta/ensembl-anno/cmd/bio-repeats/cmd"

func main() {
	cmd.Run()
}
