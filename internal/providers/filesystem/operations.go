package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
)

// Rename moves the entry at path to newName inside dir. An empty dir keeps the entry in its
// current directory. Links are renamed, not their targets.
func (o *Ops) Rename(ctx context.Context, path, newName, dir string) (*types.Result, error) {
	const op = "rename"

	src, err := o.resolveEntry(op, path)
	if err != nil {
		return types.Failure(op, path, err)
	}
	if dir == "" {
		dir = filepath.Dir(src)
	}

	dst, err := o.resolveChild(op, dir, newName)
	if err != nil {
		return types.Failure(op, newName, err)
	}
	if dst == src {
		res := types.Success(op, types.EntryResult{Name: o.guard.Rel(dst), Path: dst})
		res.Output = dst
		return res, nil
	}
	if paths.Within(src, dst) {
		return types.Failure(op, newName, types.Errorf(op, newName, types.KindInvalidArgument, "cannot move a directory into itself"))
	}

	taken, err := exists(dst)
	if err != nil {
		return types.Failure(op, newName, err)
	}
	if taken {
		return types.Failure(op, newName, types.Errorf(op, newName, types.KindAlreadyExists, "entry exists"))
	}

	if err := os.Rename(src, dst); err != nil {
		return types.Failure(op, path, err)
	}

	res := types.Success(op, types.EntryResult{Name: o.guard.Rel(dst), Path: dst})
	res.Output = dst
	return res, nil
}

// SetPermissions sets the numeric POSIX mode of path. On hosts without POSIX permissions
// the call succeeds without changing anything and says so in the result note.
func (o *Ops) SetPermissions(ctx context.Context, path string, mode uint32) (*types.Result, error) {
	const op = "set_permissions"

	if mode > 0o7777 {
		return types.Failure(op, path, types.Errorf(op, path, types.KindInvalidArgument, "mode %o out of range", mode))
	}

	p, err := o.guard.Resolve(path)
	if err != nil {
		return types.Failure(op, path, err)
	}

	res := types.Success(op, types.EntryResult{Name: o.guard.Rel(p), Path: p})
	res.Output = p

	if !o.profile.POSIX {
		res.Note = "host has no POSIX permissions; mode left unchanged"
		return res, nil
	}

	if err := os.Chmod(p, types.FileMode(mode)); err != nil {
		return types.Failure(op, path, err)
	}
	return res, nil
}
