package screener

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedPauser replaces real sleeps with a per-call hook so size-stability
// rounds can be driven deterministically.
type scriptedPauser struct {
	mu      sync.Mutex
	calls   int
	onPause func(call int)
}

func (p *scriptedPauser) Pause(context.Context, time.Duration) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	hook := p.onPause
	p.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	time.Sleep(200 * time.Microsecond)
}

func newTestDetector(hook func(call int)) *DownloadDetector {
	d := NewDownloadDetector(time.Millisecond, zap.NewNop())
	d.pause = &scriptedPauser{onPause: hook}
	return d
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestWaitForFileStableSize(t *testing.T) {
	dir := t.TempDir()
	d := newTestDetector(nil)
	before := d.Snapshot(dir)

	path := filepath.Join(dir, "india_screener.csv")
	writeFile(t, path, 100)

	got, ok := d.WaitForFile(context.Background(), dir, before, time.Second)
	require.True(t, ok)
	require.Equal(t, path, got)
}

func TestWaitForFileGrowingGetsConfirmationRound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")

	// Size 100 at the first sample, grown to 250 by the second; the extra
	// confirmation round then sees 250 twice and accepts.
	d := newTestDetector(func(call int) {
		if call == 1 {
			writeFile(t, path, 250)
		}
	})
	before := d.Snapshot(dir)
	writeFile(t, path, 100)

	got, ok := d.WaitForFile(context.Background(), dir, before, time.Second)
	require.True(t, ok)
	require.Equal(t, path, got)
}

func TestWaitForFileNeverStabilizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endless.csv")

	size := 10
	d := newTestDetector(func(int) {
		size += 10
		writeFile(t, path, size)
	})
	before := d.Snapshot(dir)
	writeFile(t, path, size)

	_, ok := d.WaitForFile(context.Background(), dir, before, 50*time.Millisecond)
	require.False(t, ok, "a file that keeps growing must never be reported complete")
}

func TestWaitForFileSkipsPartialSibling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	partial := path + ".crdownload"

	d := newTestDetector(func(call int) {
		if call == 2 {
			require.NoError(t, os.Remove(partial))
		}
	})
	before := d.Snapshot(dir)
	writeFile(t, path, 64)
	writeFile(t, partial, 1)

	got, ok := d.WaitForFile(context.Background(), dir, before, time.Second)
	require.True(t, ok)
	require.Equal(t, path, got, "the finished file is only eligible once its partial marker is gone")
}

func TestWaitForFileIgnoresPreexistingAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.csv")
	writeFile(t, old, 128)

	d := newTestDetector(nil)
	before := d.Snapshot(dir)
	writeFile(t, filepath.Join(dir, "notes.txt"), 64)

	_, ok := d.WaitForFile(context.Background(), dir, before, 30*time.Millisecond)
	require.False(t, ok)
}

func TestWaitForFileCanceledContext(t *testing.T) {
	dir := t.TempDir()
	d := newTestDetector(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := d.WaitForFile(ctx, dir, d.Snapshot(dir), time.Second)
	require.False(t, ok)
}

func TestSnapshotMissingDir(t *testing.T) {
	d := newTestDetector(nil)
	names := d.Snapshot(filepath.Join(t.TempDir(), "nope"))
	require.Empty(t, names)
}
