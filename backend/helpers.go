package backend

import (
	"fmt"
	"io"

	"github.com/smartfs/smartfs"
)

// ValidateCopySeekPosition returns CopyToNotPossible unless the file's
// cursor is at 0,0, the only position copy and move operations start from.
func ValidateCopySeekPosition(f smartfs.File) error {
	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to determine current cursor offset: %w", err)
	}
	if offset != 0 {
		return smartfs.CopyToNotPossible
	}

	return nil
}
