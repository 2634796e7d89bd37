package gtf_test

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/JAlvarezJarreta/ensembl-anno/encoding/gtf"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maskerFeature = gtf.Feature{
	SeqName: "chr1",
	Source:  gtf.SourceRepeatMasker,
	Start:   101,
	End:     250,
	Strand:  gtf.StrandRev,
	ID:      3,
	Attrs: []gtf.Attr{
		{Key: "repeat_name", Value: "L1MA9"},
		{Key: "repeat_class", Value: "LINE/L1"},
		{Key: "repeat_start", Value: "5"},
		{Key: "repeat_end", Value: "160"},
		{Key: "score", Value: "463"},
	},
}

const maskerLine = "chr1\tRepeatMasker\trepeat\t101\t250\t.\t-\t.\t" +
	`repeat_id "3"; repeat_name "L1MA9"; repeat_class "LINE/L1"; repeat_start "5"; repeat_end "160"; score "463";` + "\n"

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	w := gtf.NewWriter(&buf)
	require.NoError(t, w.Write(&maskerFeature))
	dust := gtf.Feature{SeqName: "chr2", Source: gtf.SourceDust, Start: 13, End: 46, Strand: gtf.StrandFwd, ID: 1}
	require.NoError(t, w.Write(&dust))
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.N())
	assert.Equal(t, maskerLine+"chr2\tDust\trepeat\t13\t46\t.\t+\t.\trepeat_id \"1\";\n", buf.String())
}

func TestParseLine(t *testing.T) {
	f, err := gtf.ParseLine(maskerLine)
	require.NoError(t, err)
	assert.Equal(t, maskerFeature, f)

	v, ok := f.Attr("repeat_class")
	assert.True(t, ok)
	assert.Equal(t, "LINE/L1", v)
	v, ok = f.Attr(gtf.IDKey)
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = f.Attr("repeat_consensus")
	assert.False(t, ok)

	for _, bad := range []string{
		"",
		"chr1\tRepeatMasker\trepeat\t101\t250\t.\t-\t.",
		"chr1\tRepeatMasker\texon\t101\t250\t.\t-\t.\trepeat_id \"3\";",
		"chr1\tBLAST\trepeat\t101\t250\t.\t-\t.\trepeat_id \"3\";",
		"chr1\tTRF\trepeat\tx\t250\t.\t+\t.\trepeat_id \"3\";",
		"chr1\tTRF\trepeat\t1\t250\t.\t?\t.\trepeat_id \"3\";",
		"chr1\tTRF\trepeat\t1\t250\t.\t+\t.\trepeat_id \"three\";",
		"chr1\tTRF\trepeat\t1\t250\t.\t+\t.\trepeat_id \"3",
	} {
		_, err := gtf.ParseLine(bad)
		assert.Error(t, err, bad)
	}
}

func countFeatures(ctx context.Context, path, featureType string) (int, error) {
	n := 0
	err := gtf.ScanFeatures(ctx, path, featureType, func(gtf.Feature) error {
		n++
		return nil
	})
	return n, err
}

func TestScanFeatures(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "annotation.gtf")
	require.NoError(t, gtf.WriteFile(ctx, path, []gtf.Feature{maskerFeature, maskerFeature}))
	n, err := countFeatures(ctx, path, gtf.FeatureType)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Truncated and foreign lines are skipped.
	require.NoError(t, ioutil.WriteFile(path, []byte("# header\n"+maskerLine+maskerLine[:40]+"\n"), 0644))
	n, err = countFeatures(ctx, path, gtf.FeatureType)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// An error from fn stops the scan and is returned as is.
	stop := errors.New("stop")
	calls := 0
	err = gtf.ScanFeatures(ctx, path, gtf.FeatureType, func(gtf.Feature) error {
		calls++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, calls)

	_, err = countFeatures(ctx, path, "exon")
	assert.Error(t, err)
	_, err = countFeatures(ctx, filepath.Join(tmpdir, "missing.gtf"), gtf.FeatureType)
	assert.Error(t, err)
}
