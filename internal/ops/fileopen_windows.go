//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/tango/internal/errors"
)

// openFileNoFollow opens an export file for writing. Windows has no
// O_NOFOLLOW; ValidatePath rejects symlinks before this point.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens an import file read-only.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
