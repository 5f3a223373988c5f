package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/capability"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/testutil"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name string
	mode os.FileMode
	body string
}

func writeZip(t *testing.T, p string, entries []zipEntry) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		hdr.SetMode(e.mode)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0644))
}

type tarEntry struct {
	hdr  tar.Header
	body string
}

// writeTar writes a tar stream to p, compressed with gzip or zstd when compress names one.
func writeTar(t *testing.T, p string, entries []tarEntry, compress string) {
	t.Helper()

	var buf bytes.Buffer
	var tw *tar.Writer
	var closer func() error

	switch compress {
	case "gzip":
		gz := gzip.NewWriter(&buf)
		tw, closer = tar.NewWriter(gz), gz.Close
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		tw, closer = tar.NewWriter(zw), zw.Close
	default:
		tw, closer = tar.NewWriter(&buf), func() error { return nil }
	}

	for _, e := range entries {
		hdr := e.hdr
		hdr.Size = int64(len(e.body))
		if hdr.ModTime.IsZero() {
			hdr.ModTime = time.Unix(1700000000, 0)
		}
		require.NoError(t, tw.WriteHeader(&hdr))
		_, err := tw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, closer())
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0644))
}

var bundleEntries = []tarEntry{
	{hdr: tar.Header{Name: "bundle/", Typeflag: tar.TypeDir, Mode: 0755}},
	{hdr: tar.Header{Name: "bundle/readme.md", Typeflag: tar.TypeReg, Mode: 0644}, body: "# bundle"},
}

// TestExtractDetectsByContent tests that the layout is recognized regardless of the file name.
func TestExtractDetectsByContent(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		write    func(t *testing.T, p string)
		strategy string
	}{
		{
			name: "zip without extension",
			file: "data.bin",
			write: func(t *testing.T, p string) {
				writeZip(t, p, []zipEntry{
					{name: "bundle/", mode: os.ModeDir | 0755},
					{name: "bundle/readme.md", mode: 0644, body: "# bundle"},
				})
			},
			strategy: StrategyZip,
		},
		{
			name:     "gzip tar named tgz",
			file:     "data.tgz",
			write:    func(t *testing.T, p string) { writeTar(t, p, bundleEntries, "gzip") },
			strategy: StrategyTar,
		},
		{
			name:     "zstd tar without extension",
			file:     "data.bin",
			write:    func(t *testing.T, p string) { writeTar(t, p, bundleEntries, "zstd") },
			strategy: StrategyTar,
		},
		{
			name:     "plain tar",
			file:     "data.dat",
			write:    func(t *testing.T, p string) { writeTar(t, p, bundleEntries, "") },
			strategy: StrategyTar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, root := newTestEngine(t, nativeProfile, nil)
			tt.write(t, filepath.Join(root, tt.file))

			res, err := e.Extract(context.Background(), tt.file, "out")
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, res.Strategy)
			assert.Equal(t, types.OutcomeSuccess, res.Outcome)
			assert.Equal(t, map[string]string{
				"bundle/":          "",
				"bundle/readme.md": "# bundle",
			}, testutil.ReadTree(t, filepath.Join(root, "out")))
		})
	}
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	e, _ := newTestEngine(t, nativeProfile, nil)

	res, err := e.Extract(context.Background(), "top.txt", "")
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidArgument, res.Kind)
}

func TestExtractCapabilityUnavailable(t *testing.T) {
	e, root := newTestEngine(t, plainProfile, nil)
	writeZip(t, filepath.Join(root, "a.zip"), []zipEntry{{name: "f.txt", mode: 0644, body: "x"}})

	res, err := e.Extract(context.Background(), "a.zip", "")
	require.Error(t, err)
	assert.Equal(t, types.KindCapabilityUnavailable, types.KindOf(err))
	assert.Equal(t, types.OutcomeFailure, res.Outcome)
	assert.NoDirExists(t, filepath.Join(root, "a_extracted"))
}

// TestExtractZipSlip tests that crafted names never land outside the destination.
func TestExtractZipSlip(t *testing.T) {
	e, root := newTestEngine(t, nativeProfile, nil)
	writeZip(t, filepath.Join(root, "evil.zip"), []zipEntry{
		{name: "../../evil.txt", mode: 0644, body: "pwned"},
		{name: "/abs.txt", mode: 0644, body: "pwned"},
		{name: "link", mode: os.ModeSymlink | 0777, body: "/etc/passwd"},
		{name: "tool.sh", mode: os.ModeSetuid | 0755, body: "#!/bin/sh"},
		{name: "good.txt", mode: 0644, body: "ok"},
	})

	res, err := e.Extract(context.Background(), "evil.zip", "out")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomePartialFailure, res.Outcome)

	kinds := map[string]types.Kind{}
	for _, f := range res.Failures() {
		kinds[f.Name] = f.Kind
	}
	assert.Equal(t, map[string]types.Kind{
		"../../evil.txt": types.KindOutOfBounds,
		"/abs.txt":       types.KindOutOfBounds,
		"link":           types.KindInvalidArgument,
	}, kinds)

	out := filepath.Join(root, "out")
	assert.Equal(t, map[string]string{"good.txt": "ok", "tool.sh": "#!/bin/sh"}, testutil.ReadTree(t, out))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), "evil.txt"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(root)), "evil.txt"))

	info, err := os.Stat(filepath.Join(out, "tool.sh"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSetuid)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	assertNoTemp(t, root)
}

func TestExtractTarLinksAndTraversal(t *testing.T) {
	e, root := newTestEngine(t, nativeProfile, nil)
	writeTar(t, filepath.Join(root, "evil.tar.gz"), []tarEntry{
		{hdr: tar.Header{Name: "../escape.txt", Typeflag: tar.TypeReg, Mode: 0644}, body: "pwned"},
		{hdr: tar.Header{Name: "ok/", Typeflag: tar.TypeDir, Mode: 0755}},
		{hdr: tar.Header{Name: "ok/f.txt", Typeflag: tar.TypeReg, Mode: 0644}, body: "data"},
		{hdr: tar.Header{Name: "ok/l", Typeflag: tar.TypeSymlink, Linkname: "/etc", Mode: 0777}},
		{hdr: tar.Header{Name: "ok/h", Typeflag: tar.TypeLink, Linkname: "ok/f.txt", Mode: 0644}},
	}, "gzip")

	res, err := e.Extract(context.Background(), "evil.tar.gz", "")
	require.NoError(t, err)
	assert.Equal(t, StrategyTar, res.Strategy)
	assert.Equal(t, types.OutcomePartialFailure, res.Outcome)
	assert.Len(t, res.Failures(), 3)

	assert.Equal(t, map[string]string{
		"ok/":      "",
		"ok/f.txt": "data",
	}, testutil.ReadTree(t, filepath.Join(root, "evil_extracted")))
	assert.NoFileExists(t, filepath.Join(root, "escape.txt"))
}

func TestExtractAllEntriesFail(t *testing.T) {
	e, root := newTestEngine(t, nativeProfile, nil)
	writeZip(t, filepath.Join(root, "bad.zip"), []zipEntry{
		{name: "../a.txt", mode: 0644, body: "x"},
		{name: "../b.txt", mode: 0644, body: "y"},
	})

	res, err := e.Extract(context.Background(), "bad.zip", "")
	require.Error(t, err)
	assert.Equal(t, types.OutcomeFailure, res.Outcome)
	assert.Equal(t, types.KindOutOfBounds, res.Kind)
	assert.NoDirExists(t, filepath.Join(root, "bad_extracted"))
	assertNoTemp(t, root)
}

// TestExtractMerge tests extraction into an existing directory.
func TestExtractMerge(t *testing.T) {
	e, root := newTestEngine(t, nativeProfile, nil)
	ctx := context.Background()

	_, err := e.Create(ctx, sampleRequest("out.zip"))
	require.NoError(t, err)

	testutil.WriteTree(t, root, map[string]string{
		"dest/keep.txt":      "keep",
		"dest/docs/old.txt":  "old",
		"dest/docs/a.txt":    "stale",
		"dest/top.txt/inner": "dir where a file should go",
	})

	res, err := e.Extract(ctx, "out.zip", "dest")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomePartialFailure, res.Outcome)

	fails := res.Failures()
	require.Len(t, fails, 1)
	assert.Equal(t, "top.txt", fails[0].Name)
	assert.Equal(t, types.KindAlreadyExists, fails[0].Kind)

	assert.Equal(t, map[string]string{
		"keep.txt":       "keep",
		"docs/":          "",
		"docs/old.txt":   "old",
		"docs/a.txt":     "alpha",
		"docs/empty/":    "",
		"docs/sub/":      "",
		"docs/sub/b.txt": "beta",
		"top.txt/":       "",
		"top.txt/inner":  "dir where a file should go",
	}, testutil.ReadTree(t, filepath.Join(root, "dest")))
	assertNoTemp(t, filepath.Join(root, "dest"))
}

func TestExtractDestinationChecks(t *testing.T) {
	e, root := newTestEngine(t, plainProfile, nil)
	ctx := context.Background()

	_, err := e.Create(ctx, sampleRequest("out.zip"))
	require.NoError(t, err)

	res, err := e.Extract(ctx, "out_archive", "out_archive/inner")
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidArgument, res.Kind)

	res, err = e.Extract(ctx, "out_archive", "top.txt")
	require.Error(t, err)
	assert.Equal(t, types.KindAlreadyExists, res.Kind)

	res, err = e.Extract(ctx, "out_archive", "../elsewhere")
	require.Error(t, err)
	assert.Equal(t, types.KindOutOfBounds, res.Kind)

	res, err = e.Extract(ctx, "missing.zip", "")
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, res.Kind)

	assert.ElementsMatch(t, []string{"docs", "out_archive", "top.txt"}, testutil.Names(t, root))
}

func TestExtractPlainCopyRejectsLinks(t *testing.T) {
	e, root := newTestEngine(t, plainProfile, nil)
	testutil.WriteTree(t, root, map[string]string{"mirror/f.txt": "f"})
	require.NoError(t, os.Symlink("/etc/passwd", filepath.Join(root, "mirror", "l")))

	res, err := e.Extract(context.Background(), "mirror", "")
	require.NoError(t, err)
	assert.Equal(t, StrategyPlainCopy, res.Strategy)
	assert.Equal(t, types.OutcomePartialFailure, res.Outcome)
	assert.Equal(t, map[string]string{"f.txt": "f"}, testutil.ReadTree(t, filepath.Join(root, "mirror_extracted")))
}

func TestExtractCancelled(t *testing.T) {
	e, root := newTestEngine(t, nativeProfile, nil)
	_, err := e.Create(context.Background(), sampleRequest("out.zip"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Extract(ctx, "out.zip", "")
	require.Error(t, err)
	assert.Equal(t, types.KindTimeout, res.Kind)
	assert.Empty(t, res.Output)
	assert.ElementsMatch(t, []string{"docs", "out.zip", "top.txt"}, testutil.Names(t, root))
}

func TestSelectExtractor(t *testing.T) {
	shellOnly := capability.Profile{ShellExec: true, POSIX: true}
	e := New(nil, shellOnly, &testutil.MockRunner{}, nil)

	assert.Equal(t, StrategyShellTar, e.selectExtractor(formatGzip, "a.tar.gz").name)
	assert.Nil(t, e.selectExtractor(formatGzip, "a.gz"))
	assert.Nil(t, e.selectExtractor(formatZip, "a.zip"))
	assert.Nil(t, e.selectExtractor(formatZstd, "a.tar.zst"))
	assert.Equal(t, StrategyPlainCopy, e.selectExtractor(formatDirectory, "a_archive").name)

	native := New(nil, nativeProfile, nil, nil)
	assert.Equal(t, StrategyTar, native.selectExtractor(formatGzip, "a.tar.gz").name)
	assert.Equal(t, StrategyZip, native.selectExtractor(formatZip, "a").name)
	assert.Nil(t, native.selectExtractor(formatUnknown, "a"))
}

func TestMemberType(t *testing.T) {
	assert.Equal(t, byte('d'), memberType("drwxr-xr-x user/group 0 2024-01-01 12:00 ./docs/"))
	assert.Equal(t, byte('-'), memberType("-rw-r--r-- user/group 5 2024-01-01 12:00 ./docs/a.txt"))
	assert.Equal(t, byte('l'), memberType("lrwxrwxrwx user/group 0 2024-01-01 12:00 ./l -> /etc"))
	assert.Equal(t, byte('h'), memberType("-rw-r--r-- user/group 0 2024-01-01 12:00 ./h link to ./a"))
	assert.Equal(t, byte('?'), memberType(""))
}
