package repeat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dustFeature(seq string, start, id int) gtf.Feature {
	return gtf.Feature{SeqName: seq, Source: gtf.SourceDust, Start: start, End: start + 9, Strand: gtf.StrandFwd, ID: id}
}

func TestMerge(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	ctx := context.Background()

	// Written out of order; merged by file name.
	require.NoError(t, gtf.WriteFile(ctx, filepath.Join(dir, "chr2.rs0.re100.dust.gtf"),
		[]gtf.Feature{dustFeature("chr2", 5, 1)}))
	require.NoError(t, gtf.WriteFile(ctx, filepath.Join(dir, "chr1.rs0.re100.dust.gtf"),
		[]gtf.Feature{dustFeature("chr1", 1, 1), dustFeature("chr1", 50, 2)}))
	require.NoError(t, gtf.WriteFile(ctx, filepath.Join(dir, "chr1.rs100.re200.dust.gtf"), nil))
	// Not a dust part.
	require.NoError(t, gtf.WriteFile(ctx, filepath.Join(dir, "chr1.rs0.re100.trf.gtf"),
		[]gtf.Feature{{SeqName: "chr1", Source: gtf.SourceTRF, Start: 1, End: 2, Strand: gtf.StrandFwd, ID: 1}}))
	// Subdirectories are not searched, whatever their name.
	for _, sub := range []string{"old", "chr9.rs0.re100.dust.gtf"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0755))
		require.NoError(t, gtf.WriteFile(ctx, filepath.Join(dir, sub, "chr3.rs0.re100.dust.gtf"),
			[]gtf.Feature{dustFeature("chr3", 7, 1)}))
	}

	path, n, err := Merge(ctx, dir, ".dust.gtf", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, AnnotationFile), path)
	assert.Equal(t, 3, n)
	features := readFeatures(t, path)
	assert.Equal(t, []gtf.Feature{
		dustFeature("chr1", 1, 1),
		dustFeature("chr1", 50, 2),
		dustFeature("chr2", 5, 1),
	}, features)
	_, err = os.Stat(path + ".partial")
	assert.True(t, os.IsNotExist(err))

	// Merging again ignores the previous annotation file.
	path, n, err = Merge(ctx, dir, ".dust.gtf", true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	features = readFeatures(t, path)
	require.Len(t, features, 3)
	for i, f := range features {
		assert.Equal(t, i+1, f.ID)
	}
	assert.Equal(t, "chr2", features[2].SeqName)
}

func TestMergeEmpty(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path, n, err := Merge(ctx, dir, ".rm.gtf", false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
	assert.False(t, HasOutput(ctx, path, gtf.SourceRepeatMasker))
}

func TestHasOutput(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(dir, AnnotationFile)
	assert.False(t, HasOutput(ctx, path, gtf.SourceDust))
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0644))
	assert.False(t, HasOutput(ctx, path, gtf.SourceDust))
	require.NoError(t, gtf.WriteFile(ctx, path, []gtf.Feature{dustFeature("chr1", 1, 1)}))
	assert.True(t, HasOutput(ctx, path, gtf.SourceDust))
	// Features from another program don't make a TRF run done.
	assert.False(t, HasOutput(ctx, path, gtf.SourceTRF))
	assert.False(t, HasOutput(ctx, path, gtf.SourceRepeatMasker))
}
