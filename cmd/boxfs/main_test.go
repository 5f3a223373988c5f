package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t    *testing.T
	root string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("BOXFS_ALLOW_NETWORK", "false")
	t.Setenv("BOXFS_ALLOW_SHELL", "false")
	t.Setenv("LOG_LEVEL", "error")
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return &cli{t: t, root: root}
}

func (c *cli) run(stdin string, args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--root", c.root}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) result(stdout string) types.Result {
	c.t.Helper()
	var res types.Result
	require.NoError(c.t, sonic.Unmarshal([]byte(stdout), &res))
	return res
}

func TestCLISession(t *testing.T) {
	c := newCLI(t)

	code, out, _ := c.run("", "mkdir", "docs")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "create_directory", c.result(out).Op)

	code, out, _ = c.run("hello\n", "put", "docs/hello.txt")
	require.Equal(t, exitOK, code)
	assert.Equal(t, int64(6), c.result(out).Bytes)

	code, out, _ = c.run("", "ls", "docs")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "hello.txt")
	assert.Contains(t, out, "6 B")

	code, out, _ = c.run("", "zip", "docs.zip", "docs")
	require.Equal(t, exitOK, code)
	res := c.result(out)
	assert.Equal(t, "zip", res.Strategy)
	assert.Equal(t, types.OutcomeSuccess, res.Outcome)

	code, out, _ = c.run("", "unzip", "--dest", "restored", "docs.zip")
	require.Equal(t, exitOK, code)
	assert.Equal(t, filepath.Join(c.root, "restored"), c.result(out).Output)

	code, out, _ = c.run("", "cat", "restored/docs/hello.txt")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "hello\n", out)

	code, out, _ = c.run("", "find", "--json", "**/*.txt")
	require.Equal(t, exitOK, code)
	var entries []types.Entry
	require.NoError(t, sonic.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 2)

	code, _, errOut := c.run("", "rm", "docs")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, errOut, "not empty")

	code, _, _ = c.run("", "rm", "-r", "docs")
	assert.Equal(t, exitOK, code)
	_, err := os.Stat(filepath.Join(c.root, "docs"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLIPartialFailure(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.MkdirAll(filepath.Join(c.root, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(c.root, "docs", "a.txt"), []byte("a"), 0644))

	code, out, errOut := c.run("", "zip", "o.zip", "docs", "missing")
	assert.Equal(t, exitPartial, code)
	res := c.result(out)
	assert.Equal(t, types.OutcomePartialFailure, res.Outcome)
	require.Len(t, res.Failures(), 1)
	assert.Equal(t, types.KindNotFound, res.Failures()[0].Kind)
	assert.Contains(t, errOut, "missing")
	assert.FileExists(t, filepath.Join(c.root, "o.zip"))
}

func TestCLIFetchDisabled(t *testing.T) {
	c := newCLI(t)

	code, out, _ := c.run("", "fetch", "https://example.com/a.txt")
	assert.Equal(t, exitFailed, code)
	assert.Equal(t, types.KindCapabilityUnavailable, c.result(out).Kind)
}

func TestCLIChmod(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.WriteFile(filepath.Join(c.root, "a.sh"), nil, 0644))

	code, _, _ := c.run("", "chmod", "755", "a.sh")
	assert.Equal(t, exitOK, code)

	code, out, _ := c.run("", "chmod", "rwx", "a.sh")
	assert.Equal(t, exitFailed, code)
	assert.Equal(t, types.KindInvalidArgument, c.result(out).Kind)
}

func TestCLIUsage(t *testing.T) {
	c := newCLI(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"frobnicate"}, exitUsage},
		{"missing argument", []string{"mv", "a"}, exitUsage},
		{"too many arguments", []string{"cat", "a", "b"}, exitUsage},
		{"unknown flag", []string{"ls", "--nope"}, exitUsage},
		{"help", []string{"--help"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := c.run("", tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestCLIProfile(t *testing.T) {
	c := newCLI(t)

	code, out, _ := c.run("", "profile")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "native_archive")
	assert.Contains(t, out, "outbound networking disabled")
	assert.Regexp(t, `fetch\s+network\s+unavailable`, out)
	assert.Contains(t, out, "ops:      12 of 13 available")
}

func TestCLIConfigFile(t *testing.T) {
	c := newCLI(t)
	cfgPath := filepath.Join(t.TempDir(), "boxfs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("archive:\n  native: false\n  allow_shell: false\n"), 0644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", cfgPath, "--root", c.root, "profile"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "native archive support disabled")

	code = run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "profile"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
}
