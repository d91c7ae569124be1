//go:build windows

package export

import (
	"fmt"
	"os"
)

// atomicWriteFile writes data to a file atomically. On Windows,
// renameio is unsupported; write a temp file in the same directory and
// rename it into place.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
