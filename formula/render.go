package formula

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

const (
	// FileMode is the mode of rendered formulae and installed man pages
	FileMode os.FileMode = 0o644
	// ExecMode is the mode of installed binaries
	ExecMode os.FileMode = 0o755
	// DirMode is the mode of directories created under the prefix
	DirMode os.FileMode = 0o755
)

// Render writes the Ruby formula for d to w
func (d *Descriptor) Render(w io.Writer) error {
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := io.WriteString(w, d.String())
	return err
}

// String returns the Ruby formula for d without validating it
func (d *Descriptor) String() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("class %s < Formula", d.ClassName()))
	lines = append(lines, fmt.Sprintf("  desc %s", rubyQuote(d.Desc)))
	lines = append(lines, fmt.Sprintf("  homepage %s", rubyQuote(d.Homepage)))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("  url %s", rubyQuote(d.URL)))
	lines = append(lines, fmt.Sprintf("  sha256 %s", rubyQuote(d.SHA256)))
	lines = append(lines, fmt.Sprintf("  version %s", rubyQuote(d.Version)))

	if d.License != "" {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  license %s", rubyQuote(d.License)))
	}

	if d.MinMacOS != "" {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  depends_on macos: :%s", d.MinMacOS))
	}

	lines = append(lines, "")
	lines = append(lines, "  def install")
	for _, bin := range d.Binaries {
		lines = append(lines, fmt.Sprintf("    bin.install %s", rubyQuote(bin)))
	}
	for _, page := range d.ManPages {
		lines = append(lines, fmt.Sprintf("    man%s.install %s", ManSection(page), rubyQuote(page)))
	}
	lines = append(lines, "  end")
	lines = append(lines, "end")

	return strings.Join(lines, "\n") + "\n"
}

// WriteFile renders d to path atomically. When path is a directory the file
// is named after the formula.
func (d *Descriptor) WriteFile(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, d.Name+".rb")
	}
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return "", &OpError{Op: OpRender, Path: path, Err: err}
	}
	if err := renameio.WriteFile(path, []byte(b.String()), FileMode); err != nil {
		return "", &OpError{Op: OpRender, Path: path, Err: err}
	}
	return path, nil
}

// rubyQuote returns s as a double-quoted Ruby string literal
func rubyQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "#{", `\#{`)
	return `"` + r.Replace(s) + `"`
}
