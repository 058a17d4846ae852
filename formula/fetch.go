package formula

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// MaxArchiveSize bounds the bytes Fetch reads from a remote archive
const MaxArchiveSize = 512 << 20

// Fetch retrieves the bytes at rawURL. file:// paths are read from disk,
// http:// and https:// URLs with http.DefaultClient.
func Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &OpError{Op: OpFetch, Path: rawURL, Err: err}
	}

	switch u.Scheme {
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, &OpError{Op: OpFetch, Path: rawURL, Err: err}
		}
		return data, nil

	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, &OpError{Op: OpFetch, Path: rawURL, Err: err}
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, &OpError{Op: OpFetch, Path: rawURL, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &OpError{Op: OpFetch, Path: rawURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArchiveSize+1))
		if err != nil {
			return nil, &OpError{Op: OpFetch, Path: rawURL, Err: err}
		}
		if len(data) > MaxArchiveSize {
			return nil, &OpError{Op: OpFetch, Path: rawURL, Err: fmt.Errorf("archive exceeds %d bytes", MaxArchiveSize)}
		}
		return data, nil

	default:
		return nil, &OpError{Op: OpFetch, Path: rawURL, Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}
}

// FetchVerified fetches the descriptor's archive and checks its checksum
func (d *Descriptor) FetchVerified(ctx context.Context) ([]byte, error) {
	data, err := Fetch(ctx, d.URL)
	if err != nil {
		return nil, err
	}
	if err := d.Verify(data); err != nil {
		return nil, &OpError{Op: OpVerify, Path: d.URL, Err: err}
	}
	return data, nil
}
