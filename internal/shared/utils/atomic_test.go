package utils

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.txt")

	n, err := WriteFileAtomic(context.Background(), final, strings.NewReader("payload"), 0644)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, []string{"out.txt"}, listNames(t, dir))
}

type failingReader struct{ sent bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func TestWriteFileAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.txt")

	_, err := WriteFileAtomic(context.Background(), final, &failingReader{}, 0644)
	require.Error(t, err)
	assert.NoFileExists(t, final)
	assert.Empty(t, listNames(t, dir))
}

func TestWriteFileAtomicKeepsExistingOnFailure(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(final, []byte("old"), 0644))

	_, err := WriteFileAtomic(context.Background(), final, &failingReader{}, 0644)
	require.Error(t, err)

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestWriteFileAtomicCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WriteFileAtomic(ctx, filepath.Join(dir, "out.txt"), strings.NewReader("x"), 0644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, listNames(t, dir))
}

func TestTempFileNaming(t *testing.T) {
	dir := t.TempDir()
	tmp, err := CreateTemp(filepath.Join(dir, "file.bin"), "part", 0644)
	require.NoError(t, err)
	defer tmp.Discard()

	base := filepath.Base(tmp.Name())
	assert.True(t, strings.HasPrefix(base, ".file.bin."))
	assert.True(t, paths.IsTemp(base))
	assert.Equal(t, filepath.Join(dir, "file.bin"), tmp.Final())
}

func TestTempFileCommitTwice(t *testing.T) {
	dir := t.TempDir()
	tmp, err := CreateTemp(filepath.Join(dir, "file.bin"), "part", 0644)
	require.NoError(t, err)

	_, err = io.WriteString(tmp, "data")
	require.NoError(t, err)
	require.NoError(t, tmp.Commit())
	assert.Error(t, tmp.Commit())

	tmp.Discard()
	assert.FileExists(t, filepath.Join(dir, "file.bin"))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0600))

	require.NoError(t, CopyFile(context.Background(), src, dst, 0640))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	assert.Error(t, CopyFile(context.Background(), src, dst, 0640), "destination must not exist")
}
