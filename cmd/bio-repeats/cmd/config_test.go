package cmd

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/JAlvarezJarreta/ensembl-anno/repeat"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, text string) string {
	path := filepath.Join(dir, "repeats.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := writeConfig(t, dir, `
out = " /data/anno "
parallelism = 16
seqs = ["1", " ", "X"]
genomic_coords = true

[repeatmasker]
library = "/data/custom.lib"

[trf]
path = "/opt/trf/trf409"
min_score = 50
`)
	cfg := DefaultConfig()
	require.NoError(t, LoadConfig(path, &cfg))
	assert.Equal(t, "/data/anno", cfg.Out)
	assert.Equal(t, 16, cfg.Parallelism)
	assert.Equal(t, []string{"1", "X"}, cfg.Seqs)
	assert.True(t, cfg.GenomicCoords)
	// Keys the file doesn't define keep their defaults.
	assert.Equal(t, repeat.DefaultOpts.SliceSize, cfg.SliceSize)
	assert.Equal(t, repeat.DefaultOpts.MinLength, cfg.MinLength)
	assert.False(t, cfg.Renumber)
	assert.Equal(t, repeat.RepeatMasker{
		Path:    "RepeatMasker",
		Library: "/data/custom.lib",
		Species: "homo",
		Engine:  "crossmatch",
	}, cfg.RepeatMasker)
	assert.Equal(t, "dustmasker", cfg.Dust.Path)
	want := repeat.DefaultTRFParams
	want.MinScore = 50
	assert.Equal(t, repeat.TRF{Path: "/opt/trf/trf409", Params: want}, cfg.TRF)
}

func TestLoadConfigErrors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	cfg := DefaultConfig()
	err := LoadConfig(writeConfig(t, dir, "slice_size = 10\nslicesize = 20\n"), &cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Contains(t, err.Error(), "slicesize")

	err = LoadConfig(writeConfig(t, dir, "slice_size = \"big\"\n"), &cfg)
	assert.Error(t, err)
	err = LoadConfig(filepath.Join(dir, "missing.toml"), &cfg)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeConfig(t, dir, `
out = "from-file"
slice_size = 500000
min_length = 100

[dust]
path = "/opt/ncbi/dustmasker"
`)

	var flags runFlags
	fs := flag.NewFlagSet("dust", flag.ContinueOnError)
	flags.register(fs, []string{toolDust, toolTRF})
	require.NoError(t, fs.Parse([]string{
		"-config", path,
		"-out", "from-flag",
		"-seqs", "chr1,chr2",
		"-trf-params", "2, 7, 7, 80, 10, 50, 2000",
	}))
	cfg, err := flags.resolve(fs)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Out)
	assert.Equal(t, 500000, cfg.SliceSize)
	assert.Equal(t, 100, cfg.MinLength)
	assert.Equal(t, []string{"chr1", "chr2"}, cfg.Seqs)
	assert.Equal(t, "/opt/ncbi/dustmasker", cfg.Dust.Path)
	assert.Equal(t, repeat.TRFParams{Match: 2, Mismatch: 7, Delta: 7, PM: 80, PI: 10, MinScore: 50, MaxPeriod: 2000}, cfg.TRF.Params)

	opts := cfg.Opts(map[string]string{"PATH": "/bin"})
	assert.Equal(t, "from-flag", opts.OutDir)
	assert.Equal(t, []string{"chr1", "chr2"}, opts.SeqNames)
	assert.Equal(t, "/bin", opts.Env["PATH"])

	tools := cfg.tools([]string{toolTRF, toolDust})
	require.Len(t, tools, 2)
	assert.Equal(t, "/opt/ncbi/dustmasker", tools[1].Exe())

	fs = flag.NewFlagSet("trf", flag.ContinueOnError)
	flags.register(fs, []string{toolTRF})
	require.NoError(t, fs.Parse([]string{"-trf-params", "2,7,7"}))
	_, err = flags.resolve(fs)
	assert.Error(t, err)
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummaries(&buf, []repeat.Summary{
		{Source: "Dust", Path: "out/dust_output/annotation.gtf", Results: []repeat.SliceResult{
			{Status: repeat.StatusOK, N: 4},
			{Status: repeat.StatusEmpty},
			{Status: repeat.StatusToolError, ExitCode: 1},
		}, Features: 4},
		{Source: "TRF", Path: "out/trf_output/annotation.gtf", Skipped: true},
	}))
	assert.Equal(t, "#source\tpath\tskipped\tok\tempty\ttool-error\tfailed\tfeatures\n"+
		"Dust\tout/dust_output/annotation.gtf\tfalse\t1\t1\t1\t0\t4\n"+
		"TRF\tout/trf_output/annotation.gtf\ttrue\t0\t0\t0\t0\t0\n", buf.String())
}
