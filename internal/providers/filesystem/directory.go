package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"go.uber.org/zap"
)

// List snapshots the entries of dir: directories first, then files, each group in name
// order. Symlinks are described by their target and omitted when the target leaves the
// root or does not exist. Temporary artifacts of in-flight operations are hidden.
func (o *Ops) List(ctx context.Context, dir string) ([]types.Entry, error) {
	const op = "list"

	p, err := o.resolveDir(op, dir)
	if err != nil {
		return nil, err
	}

	names, err := readNames(p)
	if err != nil {
		return nil, types.Wrap(op, dir, err)
	}

	entries := make([]types.Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, types.Wrap(op, dir, err)
		}
		if paths.IsTemp(name) {
			continue
		}

		entry, ok := o.snapshot(filepath.Join(p, name))
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}

// snapshot describes the entry at p, following a symlink only when it stays inside the root.
func (o *Ops) snapshot(p string) (types.Entry, bool) {
	info, err := os.Lstat(p)
	if err != nil {
		o.log.Debug("skipping unreadable entry", zap.String("path", p), zap.Error(err))
		return types.Entry{}, false
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := o.guard.Resolve(p)
		if err != nil {
			o.log.Debug("omitting link", zap.String("path", p), zap.Error(err))
			return types.Entry{}, false
		}
		if info, err = os.Stat(target); err != nil {
			return types.Entry{}, false
		}
	}

	entry := types.NewEntry(p, info)
	entry.Name = filepath.Base(p)
	return entry, true
}

func sortEntries(entries []types.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name < entries[j].Name
	})
}

// CreateDirectory creates name inside parent. Any existing entry under that name, including
// a dangling link, is a collision.
func (o *Ops) CreateDirectory(ctx context.Context, parent, name string) (*types.Result, error) {
	const op = "create_directory"

	p, err := o.resolveChild(op, parent, name)
	if err != nil {
		return types.Failure(op, name, err)
	}

	taken, err := exists(p)
	if err != nil {
		return types.Failure(op, name, err)
	}
	if taken {
		return types.Failure(op, name, types.Errorf(op, name, types.KindAlreadyExists, "entry exists"))
	}

	if err := os.Mkdir(p, DirPerm); err != nil {
		return types.Failure(op, name, err)
	}

	res := types.Success(op, types.EntryResult{Name: o.guard.Rel(p), Path: p})
	res.Output = p
	return res, nil
}
