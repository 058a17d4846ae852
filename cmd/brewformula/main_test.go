package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descriptorYAML = `
name: procdump
desc: ProcDump for Mac
homepage: https://learn.microsoft.com/en-us/sysinternals/downloads/procdump
url: file:///tmp/procdump.tar.gz
sha256: e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855
version: 1.0.0
license: MIT
binaries: [procdump]
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "procdump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(descriptorYAML), 0o644))

	out, err := run(t, "render", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "class Procdump < Formula\n"))
	assert.Contains(t, out, `    bin.install "procdump"`)

	_, err = run(t, "render", path, "-o", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "procdump.rb"))
}

func TestChecksumCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	out, err := run(t, "checksum", path)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855  "+path+"\n", out)

	_, err = run(t, "checksum", path, filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "procdump.tar.gz")
	require.NoError(t, os.WriteFile(archive, nil, 0o644))

	yaml := strings.Replace(descriptorYAML, "file:///tmp/procdump.tar.gz", "file://"+archive, 1)
	path := filepath.Join(dir, "procdump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	out, err := run(t, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "procdump: ok (0 bytes")

	require.NoError(t, os.WriteFile(archive, []byte("changed"), 0o644))
	_, err = run(t, "verify", path)
	require.Error(t, err)
}
