package buildcontext

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// layerEpoch is the fixed timestamp stamped on every tar entry. Wall-clock
// mtimes would make two builds of an identical tree produce different
// archives and break layer reproducibility.
var layerEpoch = time.Unix(0, 0).UTC()

// ExtraFile is a synthetic entry appended to the archive, used to inject the
// generated Dockerfile without touching the user's tree.
type ExtraFile struct {
	Name    string
	Content []byte
}

// WriteTar streams the context as a deterministic tar archive: entries come
// in sorted path order, with fixed mtimes and numeric owners. A context file
// that can no longer be opened or shrinks mid-read fails the whole archive.
func (c *Context) WriteTar(w io.Writer, extra ...ExtraFile) error {
	tw := tar.NewWriter(w)

	for _, f := range c.Files {
		hdr := &tar.Header{
			Name:    f.Rel,
			Mode:    int64(f.Mode.Perm()),
			Size:    f.Size,
			ModTime: layerEpoch,
			Uid:     0,
			Gid:     0,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header for %s: %w", f.Rel, err)
		}

		rc, err := c.Open(f.Rel)
		if err != nil {
			return fmt.Errorf("materialize %s: %w", f.Rel, err)
		}
		n, err := io.Copy(tw, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("materialize %s: %w", f.Rel, err)
		}
		if n != f.Size {
			return fmt.Errorf("materialize %s: size changed during build (%d != %d)", f.Rel, n, f.Size)
		}
	}

	for _, ef := range extra {
		hdr := &tar.Header{
			Name:    ef.Name,
			Mode:    0o600,
			Size:    int64(len(ef.Content)),
			ModTime: layerEpoch,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header for %s: %w", ef.Name, err)
		}
		if _, err := tw.Write(ef.Content); err != nil {
			return fmt.Errorf("write %s: %w", ef.Name, err)
		}
	}

	return tw.Close()
}

// Digest hashes the deterministic archive, giving a stable identity for the
// source snapshot. Equal trees hash equal; any content or name change
// changes the digest.
func (c *Context) Digest() (string, error) {
	h := sha256.New()
	if err := c.WriteTar(h); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
