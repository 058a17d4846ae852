package formula

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
)

// InstallResult lists the files Install placed under the prefix
type InstallResult struct {
	Prefix   string
	Binaries []string
	ManPages []string
}

// Install fetches and verifies the archive of d, then places its binaries in
// prefix/bin and its man pages in prefix/share/man/man<section>. Every file
// is staged first and the destinations are replaced only once all of them
// are staged, so a failed checksum, a missing artifact or an unwritable
// destination leaves no installed file behind. Directories created under
// the prefix may remain.
func Install(ctx context.Context, d *Descriptor, prefix string) (InstallResult, error) {
	res := InstallResult{Prefix: prefix}
	if err := d.Validate(); err != nil {
		return res, &OpError{Op: OpInstall, Path: prefix, Err: err}
	}

	data, err := d.FetchVerified(ctx)
	if err != nil {
		return res, err
	}

	want := make([]string, 0, len(d.Binaries)+len(d.ManPages))
	want = append(want, d.Binaries...)
	want = append(want, d.ManPages...)
	files, err := extract(ctx, data, want)
	if err != nil {
		return res, &OpError{Op: OpExtract, Path: d.URL, Err: err}
	}

	var staged []*renameio.PendingFile
	defer func() {
		for _, pf := range staged {
			_ = pf.Cleanup()
		}
	}()
	stage := func(dst string, body []byte, mode os.FileMode) error {
		pf, err := pending(dst, body, mode)
		if err != nil {
			return &OpError{Op: OpInstall, Path: dst, Err: err}
		}
		staged = append(staged, pf)
		return nil
	}

	var bins, pages []string
	for _, bin := range d.Binaries {
		dst := filepath.Join(prefix, "bin", path.Base(bin))
		if err := stage(dst, files[bin], ExecMode); err != nil {
			return res, err
		}
		bins = append(bins, dst)
	}
	for _, page := range d.ManPages {
		dst := filepath.Join(prefix, "share", "man", "man"+ManSection(page), path.Base(page))
		if err := stage(dst, files[page], FileMode); err != nil {
			return res, err
		}
		pages = append(pages, dst)
	}

	dsts := append(append([]string{}, bins...), pages...)
	for i, pf := range staged {
		if err := pf.CloseAtomicallyReplace(); err != nil {
			return res, &OpError{Op: OpInstall, Path: dsts[i], Err: err}
		}
	}
	res.Binaries = bins
	res.ManPages = pages
	return res, nil
}

// pending writes body to a temporary file beside dst, ready to replace it
func pending(dst string, body []byte, mode os.FileMode) (*renameio.PendingFile, error) {
	if err := os.MkdirAll(filepath.Dir(dst), DirMode); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		return nil, fmt.Errorf("destination is a directory")
	}
	pf, err := renameio.NewPendingFile(dst, renameio.WithPermissions(mode))
	if err != nil {
		return nil, err
	}
	if _, err := pf.Write(body); err != nil {
		_ = pf.Cleanup()
		return nil, err
	}
	return pf, nil
}

// extract reads the declared entries out of a tar.gz archive. An entry
// matches either at the archive root or below a single top-level directory,
// the layout release tarballs usually have.
func extract(ctx context.Context, archive []byte, want []string) (map[string][]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[path.Clean(w)] = true
	}

	found := make(map[string][]byte, len(want))
	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		key := name
		if !wanted[key] {
			_, rest, ok := strings.Cut(name, "/")
			if !ok || !wanted[rest] {
				continue
			}
			key = rest
		}
		if _, dup := found[key]; dup && key != name {
			// a root-level entry wins over a nested one
			continue
		}

		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		found[key] = body
	}

	files := make(map[string][]byte, len(want))
	var missing []string
	for _, w := range want {
		body, ok := found[path.Clean(w)]
		if !ok {
			missing = append(missing, w)
			continue
		}
		files[w] = body
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, strings.Join(missing, ", "))
	}
	return files, nil
}
