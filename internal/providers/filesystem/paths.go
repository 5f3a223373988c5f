package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
)

// followLeaf resolves a symlink at p to its target, which must stay inside the root. p itself
// is returned when it is not a link or does not exist.
func (o *Ops) followLeaf(op, p string) (string, error) {
	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return "", types.Wrap(op, p, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return p, nil
	}

	target, err := o.guard.ResolveFor(p)
	if err != nil {
		return "", types.Wrap(op, p, err)
	}
	return target, nil
}

// exists reports whether anything, including a dangling link, occupies p.
func exists(p string) (bool, error) {
	_, err := os.Lstat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// isDirEmpty reports whether the directory p has no entries.
func isDirEmpty(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
