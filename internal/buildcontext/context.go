// Package buildcontext models the set of files handed to an image build: the
// application source tree plus its dependency manifest. A context is
// snapshotted once, up front; the build never re-reads the live tree.
package buildcontext

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/pyship/pyship/internal/fsops"
)

var (
	ErrManifestMissing   = errors.New("dependency manifest not found in build context")
	ErrEntrypointMissing = errors.New("entry-point file not found in build context")
	ErrNotADirectory     = errors.New("build context root is not a directory")
)

const (
	DefaultManifestName   = "requirements.txt"
	DefaultEntrypointName = "app.py"

	// ignore files consulted for the exclusion policy, first match wins
	ignoreFileName         = ".pyshipignore"
	fallbackIgnoreFileName = ".dockerignore"
)

// File is one regular file inside the context, identified by its
// slash-separated path relative to the context root.
type File struct {
	Rel  string
	Size int64
	Mode fs.FileMode
}

// Context is an immutable snapshot of a build context directory.
type Context struct {
	root string
	ops  fsops.Ops

	ManifestName   string
	EntrypointName string

	// Files is sorted by Rel so every derived artifact (tar, digest) is
	// deterministic for an unchanged tree.
	Files []File
}

// Options configures context loading. Zero values fall back to the
// conventional names; Ops defaults to the real filesystem.
type Options struct {
	ManifestName   string
	EntrypointName string
	Ops            *fsops.Ops
}

// Load scans dir, applies the exclusion policy, and validates the two
// invariants every context must satisfy: the manifest and the entry-point
// file exist and are regular files. Validation failures abort before any
// build step has run.
func Load(dir string, opts Options) (*Context, error) {
	if dir == "" {
		return nil, errors.New("build context path should not be empty")
	}

	ops := fsops.DefaultOps()
	if opts.Ops != nil {
		ops = *opts.Ops
	}

	abs, err := ops.Path.Abs(dir)
	if err != nil {
		return nil, err
	}
	fi, err := ops.OS.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, abs)
	}

	ctx := &Context{
		root:           ops.Path.Clean(abs),
		ops:            ops,
		ManifestName:   opts.ManifestName,
		EntrypointName: opts.EntrypointName,
	}
	if ctx.ManifestName == "" {
		ctx.ManifestName = DefaultManifestName
	}
	if ctx.EntrypointName == "" {
		ctx.EntrypointName = DefaultEntrypointName
	}

	matcher, err := ctx.loadIgnoreMatcher()
	if err != nil {
		return nil, err
	}

	if err := ctx.scan(matcher); err != nil {
		return nil, err
	}

	if !ctx.Has(ctx.ManifestName) {
		return nil, fmt.Errorf("%w: %s", ErrManifestMissing, ctx.ManifestName)
	}
	if !ctx.Has(ctx.EntrypointName) {
		return nil, fmt.Errorf("%w: %s", ErrEntrypointMissing, ctx.EntrypointName)
	}

	return ctx, nil
}

// Root returns the absolute context root directory.
func (c *Context) Root() string {
	return c.root
}

// Has reports whether rel (slash-separated, relative) survived the scan.
func (c *Context) Has(rel string) bool {
	i := sort.Search(len(c.Files), func(i int) bool { return c.Files[i].Rel >= rel })
	return i < len(c.Files) && c.Files[i].Rel == rel
}

// Open opens one context file for reading.
func (c *Context) Open(rel string) (io.ReadCloser, error) {
	return c.ops.OS.Open(c.ops.Path.Join(c.root, filepath.FromSlash(rel)))
}

// ReadManifest returns the raw bytes of the dependency manifest.
func (c *Context) ReadManifest() ([]byte, error) {
	return c.ops.OS.ReadFile(c.ops.Path.Join(c.root, c.ManifestName))
}

func (c *Context) scan(matcher *ignoreMatcher) error {
	walkFn := func(path string, d fs.DirEntry, walkErr error) error {
		// unreadable entries abort the scan; a context we cannot fully read
		// cannot be materialized faithfully
		if walkErr != nil {
			return walkErr
		}

		rel, err := c.ops.Path.Rel(c.root, c.ops.Path.Clean(path))
		if err != nil {
			return err
		}
		relSlash := toSlash(rel)
		if relSlash == "." {
			return nil
		}

		excluded, err := matcher.excluded(relSlash)
		if err != nil {
			return err
		}
		if excluded {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		// symlinks and other irregular entries don't belong in an image layer
		if !info.Mode().IsRegular() {
			return nil
		}

		c.Files = append(c.Files, File{
			Rel:  relSlash,
			Size: info.Size(),
			Mode: info.Mode(),
		})
		return nil
	}

	if err := c.ops.Walker.WalkDir(c.root, walkFn); err != nil {
		return err
	}

	sort.Slice(c.Files, func(i, j int) bool { return c.Files[i].Rel < c.Files[j].Rel })
	return nil
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}
