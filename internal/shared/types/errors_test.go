package types

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", fmt.Errorf("copy: %w", context.Canceled), KindTimeout},
		{"not exist", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, KindNotFound},
		{"exist", fs.ErrExist, KindAlreadyExists},
		{"permission", fs.ErrPermission, KindPermissionDenied},
		{"not empty", &os.PathError{Op: "remove", Path: "d", Err: syscall.ENOTEMPTY}, KindNotEmpty},
		{"invalid", fs.ErrInvalid, KindInvalidArgument},
		{"not a directory", &fs.PathError{Op: "open", Path: "f/x", Err: syscall.ENOTDIR}, KindInvalidArgument},
		{"is a directory", &os.LinkError{Op: "rename", Old: "f", New: "d", Err: syscall.EISDIR}, KindAlreadyExists},
		{"read-only fs", syscall.EROFS, KindPermissionDenied},
		{"no space", &fs.PathError{Op: "write", Path: "f", Err: syscall.ENOSPC}, KindIO},
		{"cross device", &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EXDEV}, KindIO},
		{"unknown", errors.New("boom"), KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestOpErrorIs(t *testing.T) {
	cause := errors.New("no such thing")
	err := fmt.Errorf("outer: %w", NewError("delete", "/srv/a", KindNotFound, cause))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrOutOfBounds)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "delete /srv/a: not_found: no such thing", errors.Unwrap(err).Error())
}

func TestWrapKeepsKind(t *testing.T) {
	inner := Errorf("resolve", "/srv/x", KindOutOfBounds, "escapes root")

	wrapped := Wrap("rename", "", inner)
	assert.Equal(t, "rename", wrapped.Op)
	assert.Equal(t, "/srv/x", wrapped.Path)
	assert.Equal(t, KindOutOfBounds, wrapped.Kind)

	assert.Nil(t, Wrap("rename", "/srv/x", nil))
	assert.Equal(t, KindNotFound, Wrap("open", "/srv/y", fs.ErrNotExist).Kind)
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindNetworkError.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.False(t, KindOutOfBounds.Retryable())
	assert.False(t, KindCapabilityUnavailable.Retryable())
}

func TestFailure(t *testing.T) {
	res, err := Failure("create_directory", "/srv/docs", fs.ErrExist)
	require.Error(t, err)

	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.Equal(t, KindAlreadyExists, res.Kind)
	assert.Equal(t, err.Error(), res.Error)
	require.Len(t, res.Affected, 1)
	assert.Equal(t, "/srv/docs", res.Affected[0].Path)
	assert.True(t, res.Affected[0].Failed())
}

func TestSettle(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		res := &Result{Op: "create_archive"}
		res.Succeeded("a", "/srv/a")
		require.NoError(t, res.Settle(1, 0))
		assert.Equal(t, OutcomeSuccess, res.Outcome)
		assert.Equal(t, KindNone, res.Kind)
	})

	t.Run("some failed", func(t *testing.T) {
		res := &Result{Op: "create_archive"}
		res.Succeeded("a", "/srv/a")
		res.Fail("b", "/srv/b", fs.ErrNotExist)
		res.Skip("c", "/srv/c", "link escapes root")

		require.NoError(t, res.Settle(2, 1))
		assert.Equal(t, OutcomePartialFailure, res.Outcome)
		assert.Equal(t, KindPartialFailure, res.Kind)
		require.Len(t, res.Failures(), 1)
		assert.Equal(t, "b", res.Failures()[0].Name)
	})

	t.Run("all failed with one kind", func(t *testing.T) {
		res := &Result{Op: "extract_archive", Output: "/srv/out"}
		res.Fail("../x", "", Errorf("extract_archive", "../x", KindOutOfBounds, "escapes"))
		res.Fail("../y", "", Errorf("extract_archive", "../y", KindOutOfBounds, "escapes"))

		err := res.Settle(2, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		assert.Equal(t, OutcomeFailure, res.Outcome)
	})

	t.Run("all failed with mixed kinds", func(t *testing.T) {
		res := &Result{Op: "create_archive"}
		res.Fail("a", "/srv/a", fs.ErrNotExist)
		res.Fail("b", "/srv/b", fs.ErrPermission)

		assert.ErrorIs(t, res.Settle(2, 2), ErrPartialFailure)
	})
}

func TestAbortKeepsEntries(t *testing.T) {
	res := &Result{Op: "create_archive"}
	res.Succeeded("a", "/srv/a")

	err := res.Abort("out.zip", context.Canceled)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.Len(t, res.Affected, 1)
}

func TestModes(t *testing.T) {
	for _, bits := range []uint32{0o644, 0o755, 0o4755, 0o2750, 0o1777, 0o7777} {
		assert.Equal(t, bits, PosixMode(FileMode(bits)), "%04o", bits)
	}

	mode, err := ParseMode("0750")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o750), mode)

	for _, bad := range []string{"", "9", "rwx", "17777"} {
		_, err := ParseMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewEntry(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o640))
	require.NoError(t, os.Chmod(p, 0o640))

	info, err := os.Stat(p)
	require.NoError(t, err)
	e := NewEntry(p, info)
	assert.Equal(t, EntryFile, e.Kind)
	assert.Equal(t, int64(5), e.Size)
	assert.Equal(t, "0640", e.ModeString)
	assert.Zero(t, e.ModifiedAt.Sub(e.ModifiedAt.Truncate(time.Minute)))

	info, err = os.Stat(dir)
	require.NoError(t, err)
	d := NewEntry(dir, info)
	assert.True(t, d.IsDir())
	assert.Zero(t, d.Size)
}
