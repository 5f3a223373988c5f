package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shared/utils"
	"go.uber.org/zap"
)

var errIsDirectory = errors.New("a directory with that name exists")

// CreateEmptyFile creates name inside dir, truncating an existing regular file. A symlink
// already at that name is written through only when its target stays inside the root.
func (o *Ops) CreateEmptyFile(ctx context.Context, dir, name string) (*types.Result, error) {
	const op = "create_file"

	p, err := o.resolveChild(op, dir, name)
	if err != nil {
		return types.Failure(op, name, err)
	}
	target, err := o.followLeaf(op, p)
	if err != nil {
		return types.Failure(op, name, err)
	}

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return types.Failure(op, name, types.NewError(op, name, types.KindAlreadyExists, errIsDirectory))
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePerm)
	if err != nil {
		return types.Failure(op, name, err)
	}
	if err := f.Close(); err != nil {
		return types.Failure(op, name, err)
	}

	res := types.Success(op, types.EntryResult{Name: o.guard.Rel(target), Path: target})
	res.Output = target
	return res, nil
}

// Delete removes a file, a link, or an empty directory.
func (o *Ops) Delete(ctx context.Context, path string) (*types.Result, error) {
	const op = "delete"

	p, err := o.resolveEntry(op, path)
	if err != nil {
		return types.Failure(op, path, err)
	}

	info, err := os.Lstat(p)
	if err != nil {
		return types.Failure(op, path, err)
	}
	if info.IsDir() {
		empty, err := isDirEmpty(p)
		if err != nil {
			return types.Failure(op, path, err)
		}
		if !empty {
			return types.Failure(op, path, types.Errorf(op, path, types.KindNotEmpty, "directory is not empty"))
		}
	}

	if err := os.Remove(p); err != nil {
		return types.Failure(op, path, err)
	}

	return types.Success(op, types.EntryResult{Name: o.guard.Rel(p), Path: p}), nil
}

// DeleteRecursive removes path and, for a directory, everything below it. Entries are
// removed one at a time, deepest first; links are removed, never followed.
func (o *Ops) DeleteRecursive(ctx context.Context, path string) (*types.Result, error) {
	const op = "delete_recursive"

	p, err := o.resolveEntry(op, path)
	if err != nil {
		return types.Failure(op, path, err)
	}

	res := &types.Result{Op: op, Output: p}
	order, listFailed := o.preOrder(p, res)
	failed := listFailed

	for i := len(order) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return res, res.Abort(path, err)
		}

		entry := order[i]
		if err := os.Remove(entry); err != nil {
			res.Fail(o.guard.Rel(entry), entry, types.Wrap(op, entry, err))
			failed++
			o.log.Warn("remove failed", zap.String("path", entry), zap.Error(err))
			continue
		}
		res.Succeeded(o.guard.Rel(entry), entry)
	}

	return res, res.Settle(len(order)+listFailed, failed)
}

// preOrder lists p and its descendants in depth-first pre-order without following links.
// Directories that cannot be read are recorded as failures on res.
func (o *Ops) preOrder(p string, res *types.Result) ([]string, int) {
	var order []string
	failed := 0
	stack := []string{p}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := os.Lstat(cur)
		if err != nil {
			res.Fail(o.guard.Rel(cur), cur, types.Wrap(res.Op, cur, err))
			failed++
			continue
		}
		order = append(order, cur)
		if !info.IsDir() {
			continue
		}

		names, err := readNames(cur)
		if err != nil {
			res.Fail(o.guard.Rel(cur), cur, types.Wrap(res.Op, cur, err))
			failed++
			continue
		}
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, cur+string(os.PathSeparator)+names[i])
		}
	}

	return order, failed
}

// readNames returns the entry names of dir in byte-wise order.
func readNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Store writes r into dir/name through a temporary sibling, replacing an existing file only
// once the content is complete.
func (o *Ops) Store(ctx context.Context, dir, name string, r io.Reader) (*types.Result, error) {
	const op = "store"

	p, err := o.resolveChild(op, dir, name)
	if err != nil {
		return types.Failure(op, name, err)
	}
	if info, err := os.Lstat(p); err == nil && info.IsDir() {
		return types.Failure(op, name, types.NewError(op, name, types.KindAlreadyExists, errIsDirectory))
	}

	n, err := utils.WriteFileAtomic(ctx, p, r, FilePerm)
	if err != nil {
		return types.Failure(op, name, err)
	}
	o.log.Debug("stored file", zap.String("path", p), zap.Int64("bytes", n))

	res := types.Success(op, types.EntryResult{Name: o.guard.Rel(p), Path: p})
	res.Output = p
	res.Bytes = n
	return res, nil
}

// Open returns a read handle on a regular file inside the root. The caller closes it.
func (o *Ops) Open(ctx context.Context, path string) (*os.File, types.Entry, error) {
	const op = "open"

	p, err := o.guard.Resolve(path)
	if err != nil {
		return nil, types.Entry{}, types.Wrap(op, path, err)
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, types.Entry{}, types.Wrap(op, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, types.Entry{}, types.Wrap(op, path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, types.Entry{}, types.Errorf(op, path, types.KindInvalidArgument, "not a regular file")
	}

	return f, types.NewEntry(p, info), nil
}
