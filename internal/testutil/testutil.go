// Package testutil provides sandbox trees and mocks for package tests.
package testutil

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shell"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// NewSandbox creates a temporary root directory and a guard confined to it.
func NewSandbox(t *testing.T) (*paths.Guard, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "files")
	require.NoError(t, os.Mkdir(root, 0755))

	g, err := paths.NewGuard(root)
	require.NoError(t, err)
	return g, g.Root()
}

// WriteTree creates files below root. Keys are slash-separated relative paths; a key ending
// in "/" creates a directory, any other key a file holding the value.
func WriteTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()

	for name, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(p, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

// ReadTree snapshots dir in the WriteTree format. Links are reported as "-> target".
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()

	tree := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			tree[rel] = "-> " + target
		case d.IsDir():
			tree[rel+"/"] = ""
		default:
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			tree[rel] = string(data)
		}
		return nil
	})
	require.NoError(t, err)
	return tree
}

// Names lists the entry names directly inside dir.
func Names(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// MockRunner is a mock implementation of the shell runner.
type MockRunner struct {
	mock.Mock
}

// Run mocks the Run method.
func (m *MockRunner) Run(ctx context.Context, dir string, args ...string) (*shell.Result, error) {
	called := m.Called(ctx, dir, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).(*shell.Result), called.Error(1)
}
