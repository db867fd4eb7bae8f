// Package backup snapshots a whole VSFS image to a snappy-compressed
// archive and restores it. This is purely a CLI-level convenience: it
// compresses the entire image file as a unit, and has nothing to do with
// (and does not change) the journal's own record format, which the
// specification explicitly keeps uncompressed.
package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/snappy"
)

// Snapshot compresses the image at srcPath into a snappy-framed archive at
// dstPath.
func Snapshot(srcPath, dstPath string) error {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("backup: read image %q: %w", srcPath, err)
	}

	out, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("backup: create archive %q: %w", dstPath, err)
	}
	defer out.Close()

	w := snappy.NewBufferedWriter(out)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("backup: compress image: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("backup: flush archive: %w", err)
	}
	return nil
}

// Restore decompresses the archive at srcPath back into a full image file
// at dstPath. It refuses to overwrite an existing, non-empty destination
// unless force is true.
func Restore(srcPath, dstPath string, force bool) error {
	if !force {
		if info, err := os.Stat(dstPath); err == nil && info.Size() > 0 {
			return fmt.Errorf("backup: refusing to overwrite existing non-empty image %q without --force", dstPath)
		}
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("backup: open archive %q: %w", srcPath, err)
	}
	defer in.Close()

	r := snappy.NewReader(in)
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("backup: decompress archive: %w", err)
	}

	if err := os.WriteFile(dstPath, raw, 0644); err != nil {
		return fmt.Errorf("backup: write image %q: %w", dstPath, err)
	}
	return nil
}
