package fs

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to path by writing to a temp file in the same
// directory and calling RenameWithFallback, so concurrent readers never see
// a partial write. cmd/zen uses it to write the patched board file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	return RenameWithFallback(tmpName, path)
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string, perm os.FileMode) error {
	ok, err := IsDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if ok {
		return nil
	}
	return os.MkdirAll(dir, perm)
}
