package simfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"lumator/internal/errs"
)

// writeFile replaces path with whatever fill writes, creating the parent
// directory when needed. The content lands under a temp name first and is renamed
// into place, so readers never see a partial file.
func writeFile(path string, fill func(w *bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", errs.ErrIO, path, err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errs.ErrIO, tmpPath, err)
	}

	writer := bufio.NewWriter(file)
	if err := fill(writer); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", errs.ErrIO, path, err)
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: flush %s: %v", errs.ErrIO, path, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %v", errs.ErrIO, path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %v", errs.ErrIO, path, err)
	}
	return nil
}
