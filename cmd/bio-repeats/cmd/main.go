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
	"flag"
	"fmt"
	"io"
	golog "log"
	"strings"

	"github.com/JAlvarezJarreta/ensembl-anno/repeat"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

// Names of the tool subcommands, in the order "all" runs them.
const (
	toolRepeatMasker = "repeatmasker"
	toolDust         = "dust"
	toolTRF          = "trf"
)

var allTools = []string{toolRepeatMasker, toolDust, toolTRF}

// runFlags are the flags shared by every subcommand.  Tool flags are only
// registered on the subcommands that run the tool.
type runFlags struct {
	configPath    string
	out           string
	parallelism   int
	sliceSize     int
	overlap       int
	minLength     int
	seqs          string
	renumber      bool
	genomicCoords bool

	repeatMasker, library, species, engine string
	dustmasker                             string
	trf, trfParams                         string
}

func (f *runFlags) register(fs *flag.FlagSet, tools []string) {
	def := DefaultConfig()
	fs.StringVar(&f.configPath, "config", "", "TOML file with settings for the run and the tools. Flags given on the command line override it")
	fs.StringVar(&f.out, "out", def.Out, "Output directory. Each tool writes to its own subdirectory")
	fs.IntVar(&f.parallelism, "parallelism", def.Parallelism, "Maximum number of slices processed at once; 0 = runtime.NumCPU()")
	fs.IntVar(&f.sliceSize, "slice-size", def.SliceSize, "Width of the genome slices each tool run processes")
	fs.IntVar(&f.overlap, "overlap", def.Overlap, "Number of bases shared by consecutive slices of a sequence")
	fs.IntVar(&f.minLength, "min-length", def.MinLength, "Sequences shorter than this are skipped")
	fs.StringVar(&f.seqs, "seqs", "", "Comma-separated list of sequences to annotate. By default all of them")
	fs.BoolVar(&f.renumber, "renumber", def.Renumber, "Make repeat_id unique within each merged annotation file")
	fs.BoolVar(&f.genomicCoords, "genomic-coords", def.GenomicCoords, `Report features in sequence coordinates.
By default coordinates are relative to the start of the slice the feature was found in`)
	for _, tool := range tools {
		switch tool {
		case toolRepeatMasker:
			fs.StringVar(&f.repeatMasker, "repeatmasker", def.RepeatMasker.Path, "RepeatMasker executable")
			fs.StringVar(&f.library, "lib", def.RepeatMasker.Library, "Custom repeat library for RepeatMasker. Takes precedence over -species")
			fs.StringVar(&f.species, "species", def.RepeatMasker.Species, "Species whose RepeatMasker library is used when -lib is not given")
			fs.StringVar(&f.engine, "engine", def.RepeatMasker.Engine, "RepeatMasker search engine")
		case toolDust:
			fs.StringVar(&f.dustmasker, "dustmasker", def.Dust.Path, "dustmasker executable")
		case toolTRF:
			fs.StringVar(&f.trf, "trf", def.TRF.Path, "Tandem Repeats Finder executable")
			fs.StringVar(&f.trfParams, "trf-params", "2,5,7,80,10,40,500",
				"trf parameters: match,mismatch,delta,PM,PI,minscore,maxperiod")
		}
	}
}

// resolve merges the config file, if any, and the flags set on fs.
func (f *runFlags) resolve(fs *flag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	if f.configPath != "" {
		if err := LoadConfig(f.configPath, &cfg); err != nil {
			return cfg, err
		}
	}
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "out":
			cfg.Out = f.out
		case "parallelism":
			cfg.Parallelism = f.parallelism
		case "slice-size":
			cfg.SliceSize = f.sliceSize
		case "overlap":
			cfg.Overlap = f.overlap
		case "min-length":
			cfg.MinLength = f.minLength
		case "seqs":
			cfg.Seqs = normalizeList(strings.Split(f.seqs, ","))
		case "renumber":
			cfg.Renumber = f.renumber
		case "genomic-coords":
			cfg.GenomicCoords = f.genomicCoords
		case "repeatmasker":
			cfg.RepeatMasker.Path = f.repeatMasker
		case "lib":
			cfg.RepeatMasker.Library = f.library
		case "species":
			cfg.RepeatMasker.Species = f.species
		case "engine":
			cfg.RepeatMasker.Engine = f.engine
		case "dustmasker":
			cfg.Dust.Path = f.dustmasker
		case "trf":
			cfg.TRF.Path = f.trf
		case "trf-params":
			var p repeat.TRFParams
			if p, err = parseTRFParams(f.trfParams); err == nil {
				cfg.TRF.Params = p
			}
		}
	})
	return cfg, err
}

// tools returns the repeat.Tool for each name, configured from cfg.
func (c *Config) tools(names []string) []repeat.Tool {
	var tools []repeat.Tool
	for _, name := range names {
		switch name {
		case toolRepeatMasker:
			rm := c.RepeatMasker
			tools = append(tools, &rm)
		case toolDust:
			dust := c.Dust
			tools = append(tools, &dust)
		case toolTRF:
			trf := c.TRF
			tools = append(tools, &trf)
		default:
			panic(name)
		}
	}
	return tools
}

// annotate runs each tool in turn over genomePath.  A tool that cannot run
// doesn't keep the others from running; the first such error is returned.
func annotate(env *cmdline.Env, cfg Config, names []string, genomePath string) error {
	ctx := vcontext.Background()
	opts := cfg.Opts(env.Vars)
	var (
		summaries []repeat.Summary
		once      errors.Once
	)
	for _, tool := range cfg.tools(names) {
		log.Printf("running %v on %s", tool.Source(), genomePath)
		summary, err := repeat.Annotate(ctx, genomePath, tool, opts)
		if err != nil {
			log.Error.Printf("%v: %v", tool.Source(), err)
			once.Set(err)
			continue
		}
		summaries = append(summaries, summary)
	}
	if err := writeSummaries(env.Stdout, summaries); err != nil {
		once.Set(err)
	}
	return once.Err()
}

// writeSummaries prints one TSV line per tool.
func writeSummaries(out io.Writer, summaries []repeat.Summary) error {
	w := tsv.NewWriter(out)
	w.WriteString("#source")
	w.WriteString("path")
	w.WriteString("skipped")
	for s := repeat.StatusOK; s <= repeat.StatusFailed; s++ {
		w.WriteString(s.String())
	}
	w.WriteString("features")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, s := range summaries {
		counts := repeat.CountResults(s.Results)
		w.WriteString(s.Source)
		w.WriteString(s.Path)
		w.WriteString(fmt.Sprint(s.Skipped))
		for _, n := range counts {
			w.WriteInt64(int64(n))
		}
		w.WriteInt64(int64(s.Features))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func newCmdTool(name, short string, tools []string) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     name,
		Short:    short,
		ArgsName: "genome.fa",
		Long: `
The genome is cut into slices (see -slice-size and -overlap).  Each slice is
written to a FASTA file in the tool's output directory, the tool is run on it
and its results are converted to GTF in <slice>.<suffix>.gtf.  When all the
slices are done the per-slice files are merged into annotation.gtf.

A tool whose annotation.gtf already holds features is not run again.  Delete
the file, or the tool's directory, to start over.

If <genome.fa>.fai exists it is used to access the genome; otherwise the
index is built in memory.
`,
	}
	var flags runFlags
	flags.register(&cmd.Flags, tools)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return env.UsageErrorf("%s takes one genome path, but got %v", name, argv)
		}
		cfg, err := flags.resolve(&cmd.Flags)
		if err != nil {
			return err
		}
		return annotate(env, cfg, tools, argv[0])
	})
	return cmd
}

// Run is the entry point of bio-repeats.
func Run() {
	golog.SetFlags(golog.Ldate | golog.Ltime | golog.Lmicroseconds | golog.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-repeats",
		Short:    "Annotate repeats in a genome with RepeatMasker, dustmasker and TRF",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdTool(toolRepeatMasker, "Find interspersed repeats with RepeatMasker", []string{toolRepeatMasker}),
			newCmdTool(toolDust, "Find low-complexity regions with dustmasker", []string{toolDust}),
			newCmdTool(toolTRF, "Find tandem repeats with Tandem Repeats Finder", []string{toolTRF}),
			newCmdTool("all", "Run RepeatMasker, dustmasker and TRF one after the other", allTools),
		},
	}
}
