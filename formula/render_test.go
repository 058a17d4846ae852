package formula

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	d := validDescriptor()
	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))

	want := strings.Join([]string{
		`class Procdump < Formula`,
		`  desc "Create core dumps of an application based on performance triggers"`,
		`  homepage "https://learn.microsoft.com/en-us/sysinternals/downloads/procdump"`,
		``,
		`  url "file:///tmp/procdump.tar.gz"`,
		`  sha256 "` + testSHA + `"`,
		`  version "1.0.0"`,
		``,
		`  license "MIT"`,
		``,
		`  def install`,
		`    bin.install "procdump"`,
		`  end`,
		`end`,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderOptionalSections(t *testing.T) {
	d := validDescriptor()
	d.License = ""
	d.MinMacOS = "sonoma"
	d.ManPages = []string{"procdump.1", "procdumpd.8"}

	out := d.String()
	assert.NotContains(t, out, "license")
	assert.Contains(t, out, "  depends_on macos: :sonoma\n")
	assert.Contains(t, out, `    man1.install "procdump.1"`)
	assert.Contains(t, out, `    man8.install "procdumpd.8"`)
}

func TestRenderQuotes(t *testing.T) {
	d := validDescriptor()
	d.Desc = `Dumps "hung" #{apps} \ fast`
	assert.Contains(t, d.String(), `desc "Dumps \"hung\" \#{apps} \\ fast"`)
}

func TestRenderInvalid(t *testing.T) {
	d := validDescriptor()
	d.SHA256 = "short"
	var buf bytes.Buffer
	require.ErrorIs(t, d.Render(&buf), ErrInvalidDescriptor)
	assert.Zero(t, buf.Len())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	d := validDescriptor()

	path, err := d.WriteFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "procdump.rb"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, d.String(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())

	explicit := filepath.Join(dir, "custom.rb")
	path, err = d.WriteFile(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
}
