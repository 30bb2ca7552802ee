// Package roi models the output tree of the upstream extraction stage:
// the rois.tsv manifest, the per-uid source images, and the locations
// this stage writes its own artifacts to.
package roi

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// Tree locates files inside one extraction output directory. All
// artifacts of a run live under the same root the manifest came from.
type Tree struct {
	Root string
}

// ManifestPath returns the path of the extraction manifest.
func (t Tree) ManifestPath() string {
	return filepath.Join(t.Root, "rois.tsv")
}

// SourcePath returns the path of the ROI image for a uid.
func (t Tree) SourcePath(uid int) string {
	return filepath.Join(t.Root, "sources", fmt.Sprintf("%d.jpg", uid))
}

// AnnotPath returns the path of the rendered overlay for a uid.
func (t Tree) AnnotPath(uid int) string {
	return filepath.Join(t.Root, "annots", fmt.Sprintf("%d.jpg", uid))
}

// MaskPath returns the path of the probability raster image for a uid.
func (t Tree) MaskPath(uid int) string {
	return filepath.Join(t.Root, "masks", fmt.Sprintf("%d.jpg", uid))
}

// RawLedgerPath returns the path of the per-ROI raw ledger.
func (t Tree) RawLedgerPath() string {
	return filepath.Join(t.Root, "raw.tsv")
}

// StatsLedgerPath returns the path of the gated statistics ledger.
func (t Tree) StatsLedgerPath() string {
	return filepath.Join(t.Root, "stats.tsv")
}

// Check verifies the root exists and is a directory.
func (t Tree) Check() error {
	info, err := os.Stat(t.Root)
	if err != nil {
		return fmt.Errorf("source directory %s: %w", t.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", t.Root)
	}
	return nil
}

// EnsureOutputDirs creates the annots/ and masks/ subdirectories when
// they do not exist yet.
func (t Tree) EnsureOutputDirs() error {
	for _, dir := range []string{
		filepath.Join(t.Root, "annots"),
		filepath.Join(t.Root, "masks"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

// LoadSource reads the ROI image for a uid as 8-bit grayscale. The
// returned Mat is empty when the file is missing or not decodable;
// callers decide how to degrade.
func (t Tree) LoadSource(uid int) gocv.Mat {
	return gocv.IMRead(t.SourcePath(uid), gocv.IMReadGrayScale)
}
