package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGuard builds a root with a small tree:
//
//	root/docs/readme.txt
//	root/docs/link-in -> readme.txt
//	root/escape -> <outside>
//	root/dangling -> missing.txt
func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "files")
	outside := filepath.Join(base, "files_evil")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "readme.txt"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink("readme.txt", filepath.Join(root, "docs", "link-in")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(root, "dangling")))

	g, err := NewGuard(root)
	require.NoError(t, err)
	return g, base
}

func TestNewGuard(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := NewGuard("")
	assert.Error(t, err)

	_, err = NewGuard(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = NewGuard(file)
	assert.Error(t, err)

	g, err := NewGuard(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(g.Root()))
}

func TestResolve(t *testing.T) {
	g, base := newTestGuard(t)
	root := g.Root()

	tests := []struct {
		name      string
		candidate string
		want      string
		wantKind  types.Kind
	}{
		{name: "relative file", candidate: "docs/readme.txt", want: filepath.Join(root, "docs", "readme.txt")},
		{name: "root itself", candidate: ".", want: root},
		{name: "absolute root", candidate: filepath.Join(base, "files"), want: root},
		{name: "dot segments inside", candidate: "docs/../docs/./readme.txt", want: filepath.Join(root, "docs", "readme.txt")},
		{name: "symlink inside root", candidate: "docs/link-in", want: filepath.Join(root, "docs", "readme.txt")},
		{name: "parent traversal", candidate: "../files_evil/secret.txt", wantKind: types.KindOutOfBounds},
		{name: "absolute traversal", candidate: filepath.Join(base, "files", "..", "..", "etc", "passwd"), wantKind: types.KindOutOfBounds},
		{name: "sibling sharing prefix", candidate: filepath.Join(base, "files_evil", "secret.txt"), wantKind: types.KindOutOfBounds},
		{name: "symlink escaping root", candidate: "escape/secret.txt", wantKind: types.KindOutOfBounds},
		{name: "symlink dir escaping root", candidate: "escape", wantKind: types.KindOutOfBounds},
		{name: "missing file", candidate: "docs/nope.txt", wantKind: types.KindNotFound},
		{name: "missing intermediate", candidate: "nope/deeper/file.txt", wantKind: types.KindNotFound},
		{name: "dangling link inside root", candidate: "dangling", wantKind: types.KindNotFound},
		{name: "NUL byte", candidate: "docs/\x00", wantKind: types.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Resolve(tt.candidate)
			if tt.wantKind != types.KindNone {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, types.KindOf(err))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEtcPasswd(t *testing.T) {
	g, _ := newTestGuard(t)

	_, err := g.Resolve(filepath.Join(g.Root(), "..", "..", "etc", "passwd"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOutOfBounds))
}

func TestResolveDanglingLinkEscaping(t *testing.T) {
	g, base := newTestGuard(t)
	require.NoError(t, os.Symlink(filepath.Join(base, "nowhere", "file"), filepath.Join(g.Root(), "dangling-out")))

	_, err := g.Resolve("dangling-out")
	require.Error(t, err)
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))

	_, err = g.ResolveFor("dangling-out/child")
	require.Error(t, err)
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))
}

func TestResolveLinkLoop(t *testing.T) {
	g, _ := newTestGuard(t)
	require.NoError(t, os.Symlink("loop-b", filepath.Join(g.Root(), "loop-a")))
	require.NoError(t, os.Symlink("loop-a", filepath.Join(g.Root(), "loop-b")))

	_, err := g.Resolve("loop-a")
	require.Error(t, err)
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))
}

func TestResolveFor(t *testing.T) {
	g, _ := newTestGuard(t)
	root := g.Root()

	got, err := g.ResolveFor("new/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "new", "dir", "file.txt"), got)

	got, err = g.ResolveFor("docs/link-in")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "docs", "readme.txt"), got)

	_, err = g.ResolveFor("escape/new.txt")
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))

	_, err = g.ResolveFor("../outside.txt")
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))
}

func TestResolveEntry(t *testing.T) {
	g, _ := newTestGuard(t)
	root := g.Root()

	got, err := g.ResolveEntry("escape")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "escape"), got, "the link itself lives inside the root")

	got, err = g.ResolveEntry("docs/link-in")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "docs", "link-in"), got)

	got, err = g.ResolveEntry(".")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = g.ResolveEntry("escape/secret.txt")
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))

	_, err = g.ResolveEntry("docs/missing")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestResolveIn(t *testing.T) {
	g, _ := newTestGuard(t)
	root := g.Root()
	dest := filepath.Join(root, "docs")

	tests := []struct {
		name     string
		rel      string
		want     string
		wantKind types.Kind
	}{
		{name: "plain name", rel: "new.txt", want: filepath.Join(dest, "new.txt")},
		{name: "nested name", rel: "a/b/c.txt", want: filepath.Join(dest, "a", "b", "c.txt")},
		{name: "trailing slash", rel: "sub/", want: filepath.Join(dest, "sub")},
		{name: "inner dot-dot", rel: "a/../b.txt", want: filepath.Join(dest, "b.txt")},
		{name: "zip slip", rel: "../../evil.txt", wantKind: types.KindOutOfBounds},
		{name: "escape to sibling", rel: "../other.txt", wantKind: types.KindOutOfBounds},
		{name: "absolute", rel: "/etc/passwd", wantKind: types.KindOutOfBounds},
		{name: "base itself", rel: ".", wantKind: types.KindOutOfBounds},
		{name: "empty", rel: "", wantKind: types.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.ResolveIn(dest, tt.rel)
			if tt.wantKind != types.KindNone {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveInThroughSymlink(t *testing.T) {
	g, _ := newTestGuard(t)

	_, err := g.ResolveIn(g.Root(), "escape/planted.txt")
	require.Error(t, err)
	assert.Equal(t, types.KindOutOfBounds, types.KindOf(err))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(g.Root()), "files_evil", "planted.txt"))
}

func TestWithin(t *testing.T) {
	sep := string(filepath.Separator)
	root := sep + filepath.Join("srv", "files")

	assert.True(t, Within(root, root))
	assert.True(t, Within(root, filepath.Join(root, "a")))
	assert.False(t, Within(root, root+"_evil"))
	assert.False(t, Within(root, filepath.Dir(root)))
	assert.True(t, Within(sep, filepath.Join(sep, "etc")))
}

func TestRel(t *testing.T) {
	g, _ := newTestGuard(t)

	assert.Equal(t, ".", g.Rel(g.Root()))
	assert.Equal(t, "docs/readme.txt", g.Rel(filepath.Join(g.Root(), "docs", "readme.txt")))
}
