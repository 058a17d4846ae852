package formula

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the lowercase hex sha256 of everything read from r
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks data against the declared checksum
func (d *Descriptor) Verify(data []byte) error {
	got, err := Sum(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if got != d.SHA256 {
		return &ChecksumError{Want: d.SHA256, Got: got}
	}
	return nil
}
