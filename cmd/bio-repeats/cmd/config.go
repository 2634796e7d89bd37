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
package cmd

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/JAlvarezJarreta/ensembl-anno/repeat"
	"github.com/grailbio/base/errors"
)

// Config holds everything a run needs besides the genome path.  It is
// built from DefaultConfig, then the -config file, then the flags given on
// the command line.
type Config struct {
	Out           string
	Parallelism   int
	SliceSize     int
	Overlap       int
	MinLength     int
	Seqs          []string
	Renumber      bool
	GenomicCoords bool

	RepeatMasker repeat.RepeatMasker
	Dust         repeat.Dust
	TRF          repeat.TRF
}

// DefaultConfig returns the settings used when neither a config file nor a
// flag says otherwise.
func DefaultConfig() Config {
	return Config{
		Out:          ".",
		Parallelism:  repeat.DefaultOpts.Parallelism,
		SliceSize:    repeat.DefaultOpts.SliceSize,
		Overlap:      repeat.DefaultOpts.Overlap,
		MinLength:    repeat.DefaultOpts.MinLength,
		RepeatMasker: repeat.DefaultRepeatMasker,
		Dust:         repeat.Dust{Path: "dustmasker"},
		TRF:          repeat.TRF{Path: "trf", Params: repeat.DefaultTRFParams},
	}
}

// Opts converts c to repeat.Opts.  env is used to find the tools.
func (c *Config) Opts(env map[string]string) repeat.Opts {
	return repeat.Opts{
		OutDir:        c.Out,
		SliceSize:     c.SliceSize,
		Overlap:       c.Overlap,
		MinLength:     c.MinLength,
		Parallelism:   c.Parallelism,
		SeqNames:      c.Seqs,
		GenomicCoords: c.GenomicCoords,
		Renumber:      c.Renumber,
		Env:           env,
	}
}

type fileConfig struct {
	Out           string   `toml:"out"`
	Parallelism   int      `toml:"parallelism"`
	SliceSize     int      `toml:"slice_size"`
	Overlap       int      `toml:"overlap"`
	MinLength     int      `toml:"min_length"`
	Seqs          []string `toml:"seqs"`
	Renumber      bool     `toml:"renumber"`
	GenomicCoords bool     `toml:"genomic_coords"`

	RepeatMasker struct {
		Path    string `toml:"path"`
		Library string `toml:"library"`
		Species string `toml:"species"`
		Engine  string `toml:"engine"`
	} `toml:"repeatmasker"`
	Dust struct {
		Path string `toml:"path"`
	} `toml:"dust"`
	TRF struct {
		Path      string `toml:"path"`
		Match     int    `toml:"match"`
		Mismatch  int    `toml:"mismatch"`
		Delta     int    `toml:"delta"`
		PM        int    `toml:"pm"`
		PI        int    `toml:"pi"`
		MinScore  int    `toml:"min_score"`
		MaxPeriod int    `toml:"max_period"`
	} `toml:"trf"`
}

// LoadConfig reads the TOML file at path and overlays the keys it defines
// on cfg.  Unknown keys are an error.
//
// Example:
//
//   out = "/data/annotation"
//   parallelism = 16
//   seqs = ["1", "2", "X"]
//
//   [repeatmasker]
//   library = "/data/repeats/custom.lib"
//
//   [trf]
//   min_score = 50
func LoadConfig(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.E(errors.Invalid, "loading config", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.E(errors.Invalid, "config", path, "has unknown keys:", strings.Join(keys, ", "))
	}

	if meta.IsDefined("out") {
		cfg.Out = strings.TrimSpace(raw.Out)
	}
	if meta.IsDefined("parallelism") {
		cfg.Parallelism = raw.Parallelism
	}
	if meta.IsDefined("slice_size") {
		cfg.SliceSize = raw.SliceSize
	}
	if meta.IsDefined("overlap") {
		cfg.Overlap = raw.Overlap
	}
	if meta.IsDefined("min_length") {
		cfg.MinLength = raw.MinLength
	}
	if meta.IsDefined("seqs") {
		cfg.Seqs = normalizeList(raw.Seqs)
	}
	if meta.IsDefined("renumber") {
		cfg.Renumber = raw.Renumber
	}
	if meta.IsDefined("genomic_coords") {
		cfg.GenomicCoords = raw.GenomicCoords
	}

	rm := &cfg.RepeatMasker
	if meta.IsDefined("repeatmasker", "path") {
		rm.Path = raw.RepeatMasker.Path
	}
	if meta.IsDefined("repeatmasker", "library") {
		rm.Library = raw.RepeatMasker.Library
	}
	if meta.IsDefined("repeatmasker", "species") {
		rm.Species = raw.RepeatMasker.Species
	}
	if meta.IsDefined("repeatmasker", "engine") {
		rm.Engine = raw.RepeatMasker.Engine
	}
	if meta.IsDefined("dust", "path") {
		cfg.Dust.Path = raw.Dust.Path
	}

	trf := &cfg.TRF
	if meta.IsDefined("trf", "path") {
		trf.Path = raw.TRF.Path
	}
	for _, p := range []struct {
		key string
		src int
		dst *int
	}{
		{"match", raw.TRF.Match, &trf.Params.Match},
		{"mismatch", raw.TRF.Mismatch, &trf.Params.Mismatch},
		{"delta", raw.TRF.Delta, &trf.Params.Delta},
		{"pm", raw.TRF.PM, &trf.Params.PM},
		{"pi", raw.TRF.PI, &trf.Params.PI},
		{"min_score", raw.TRF.MinScore, &trf.Params.MinScore},
		{"max_period", raw.TRF.MaxPeriod, &trf.Params.MaxPeriod},
	} {
		if meta.IsDefined("trf", p.key) {
			*p.dst = p.src
		}
	}
	return nil
}

// normalizeList trims the entries of in and drops empty ones.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseTRFParams parses the seven comma-separated trf parameters, in the
// order trf takes them: match, mismatch, delta, PM, PI, minscore,
// maxperiod.
func parseTRFParams(s string) (repeat.TRFParams, error) {
	var p repeat.TRFParams
	fields := strings.Split(s, ",")
	dst := []*int{&p.Match, &p.Mismatch, &p.Delta, &p.PM, &p.PI, &p.MinScore, &p.MaxPeriod}
	if len(fields) != len(dst) {
		return p, errors.E(errors.Invalid, "trf parameters: expected 7 comma-separated values, got", s)
	}
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return p, errors.E(errors.Invalid, "trf parameters:", s, err)
		}
		*dst[i] = v
	}
	return p, nil
}
