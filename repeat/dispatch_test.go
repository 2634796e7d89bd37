package repeat

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/JAlvarezJarreta/ensembl-anno/interval"
	"github.com/grailbio/testutil/expect"
)

func TestDispatch(t *testing.T) {
	var slices []interval.Slice
	for i := 0; i < 20; i++ {
		slices = append(slices, interval.Slice{SeqName: "chr1", Start: i * 10, End: i*10 + 10})
	}
	var running, maxRunning int32
	results := Dispatch(slices, 3, func(s interval.Slice) SliceResult {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		// Later slices finish first.
		time.Sleep(time.Duration(20-s.Start/10) * time.Millisecond)
		atomic.AddInt32(&running, -1)
		status := StatusOK
		if s.Start%20 != 0 {
			status = StatusEmpty
		}
		return SliceResult{Slice: s, Status: status, N: 1}
	})
	expect.EQ(t, len(results), len(slices))
	for i, r := range results {
		expect.EQ(t, r.Slice, slices[i])
	}
	expect.True(t, atomic.LoadInt32(&maxRunning) <= 3)

	counts := CountResults(results)
	expect.EQ(t, counts[StatusOK], 10)
	expect.EQ(t, counts[StatusEmpty], 10)
	expect.EQ(t, counts[StatusFailed], 0)
	expect.EQ(t, Features(results), 20)
}

func TestDispatchEmpty(t *testing.T) {
	results := Dispatch(nil, 0, func(interval.Slice) SliceResult {
		t.Fatal("unexpected call")
		return SliceResult{}
	})
	expect.EQ(t, len(results), 0)
}

func TestStatusString(t *testing.T) {
	expect.EQ(t, StatusOK.String(), "ok")
	expect.EQ(t, StatusToolError.String(), "tool-error")
}
