package utils

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
)

// TempFile is a hidden sibling of a final path. Content becomes visible under the final
// name only through Commit; Discard removes every trace.
type TempFile struct {
	*os.File
	final string
	done  bool
}

// CreateTemp creates a new hidden temporary file next to final.
func CreateTemp(final, purpose string, perm os.FileMode) (*TempFile, error) {
	name := paths.TempName(final, purpose)
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", final, err)
	}
	return &TempFile{File: f, final: final}, nil
}

// Final returns the path the file is committed to.
func (t *TempFile) Final() string {
	return t.final
}

// Commit flushes the file to stable storage and renames it over the final path.
func (t *TempFile) Commit() error {
	if t.done {
		return fmt.Errorf("temp file for %s already finished", t.final)
	}
	t.done = true

	tmpName := t.Name()
	if err := t.Sync(); err != nil {
		t.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp for %s: %w", t.final, err)
	}
	if err := t.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", t.final, err)
	}
	if err := os.Rename(tmpName, t.final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", t.final, err)
	}
	return nil
}

// Discard closes and removes the temporary file. It is a no-op after Commit, so it can be
// deferred unconditionally.
func (t *TempFile) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.Close()
	os.Remove(t.Name())
}

// WriteFileAtomic streams r into final through a temporary sibling. A cancelled context or
// a failing reader leaves final untouched.
func WriteFileAtomic(ctx context.Context, final string, r io.Reader, perm os.FileMode) (int64, error) {
	tmp, err := CreateTemp(final, "tmp", perm)
	if err != nil {
		return 0, err
	}
	defer tmp.Discard()

	n, err := io.Copy(tmp, ContextReader(ctx, r))
	if err != nil {
		return n, fmt.Errorf("write %s: %w", final, err)
	}
	if err := tmp.Commit(); err != nil {
		return n, err
	}
	return n, nil
}

// ContextReader returns a reader that fails with ctx.Err() once ctx is done.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CopyFile copies the regular file src to dst, creating dst with perm. dst must not exist.
func CopyFile(ctx context.Context, src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, ContextReader(ctx, in)); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
