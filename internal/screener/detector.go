package screener

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// partialSuffixes are the in-progress names the browser writes before
// renaming a finished download.
var partialSuffixes = []string{".crdownload", ".tmp"}

// DownloadDetector infers export completion from filesystem quiescence. No
// completion event crosses the browser process boundary, so the only signal
// is a new file whose size stops changing between polls.
type DownloadDetector struct {
	logger    *zap.Logger
	pause     pauser
	poll      time.Duration
	extension string
}

// NewDownloadDetector builds a detector watching for ".csv" files. A
// non-positive poll interval falls back to the default cadence.
func NewDownloadDetector(poll time.Duration, logger *zap.Logger) *DownloadDetector {
	if poll <= 0 {
		poll = DefaultTimings().DownloadPoll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadDetector{
		logger:    logger,
		pause:     timerPauser{},
		poll:      poll,
		extension: ".csv",
	}
}

// Snapshot records the names currently present in dir. Take one before
// triggering an export so only files that appear afterwards count as
// candidates.
func (d *DownloadDetector) Snapshot(dir string) map[string]struct{} {
	names := make(map[string]struct{})
	dirents, err := os.ReadDir(dir)
	if err != nil {
		d.logger.Debug("download dir snapshot failed", zap.String("dir", dir), zap.Error(err))
		return names
	}
	for _, ent := range dirents {
		names[ent.Name()] = struct{}{}
	}
	return names
}

// WaitForFile polls dir until a file that appeared after the before snapshot
// has a stable nonzero size, or until timeout passes. Returns the completed
// file's path, or ok=false on timeout or context cancellation.
func (d *DownloadDetector) WaitForFile(ctx context.Context, dir string, before map[string]struct{}, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return "", false
		}
		for _, name := range d.candidates(dir, before) {
			path := filepath.Join(dir, name)
			if size, ok := d.stableSize(ctx, path); ok && size > 0 {
				d.logger.Debug("download complete",
					zap.String("path", path), zap.Int64("size", size))
				return path, true
			}
		}
		d.pause.Pause(ctx, d.poll)
	}
}

// candidates lists new files in dir with the expected extension, excluding
// in-progress downloads and files that still have a partial sibling (the
// browser keeps data.csv.crdownload next to data.csv until the rename).
func (d *DownloadDetector) candidates(dir string, before map[string]struct{}) []string {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, ent := range dirents {
		name := ent.Name()
		if _, existed := before[name]; existed {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), d.extension) {
			continue
		}
		if isPartialName(name) || hasPartialSibling(dir, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// stableSize samples the file size twice, one poll interval apart. Equal
// nonzero sizes mean the download finished. A second sample that moved gets
// one extra confirmation round so a still-growing file is not returned
// early; a file that moved twice is left for the next polling cycle.
func (d *DownloadDetector) stableSize(ctx context.Context, path string) (int64, bool) {
	first, err := fileSize(path)
	if err != nil || first == 0 {
		return 0, false
	}
	d.pause.Pause(ctx, d.poll)
	if ctx.Err() != nil {
		return 0, false
	}
	second, err := fileSize(path)
	if err != nil {
		return 0, false
	}
	if second == first {
		return second, true
	}
	if second == 0 {
		return 0, false
	}
	d.pause.Pause(ctx, d.poll)
	if ctx.Err() != nil {
		return 0, false
	}
	third, err := fileSize(path)
	if err != nil {
		return 0, false
	}
	if third == second {
		return third, true
	}
	return 0, false
}

func isPartialName(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func hasPartialSibling(dir, name string) bool {
	for _, suffix := range partialSuffixes {
		if _, err := os.Stat(filepath.Join(dir, name+suffix)); err == nil {
			return true
		}
	}
	return false
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
