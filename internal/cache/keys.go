package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/pyship/pyship/internal/layers"
)

type (
	CacheKey string
	ImageID  string
)

// CacheKeyDockerfileLines deterministically computes a cache key for a list of Dockerfile lines.
// It prefixes each line with its length (8-byte big-endian) before hashing to avoid collisions
// between sequences like ["ab", "c"] and ["a", "bc"].
func CacheKeyDockerfileLines(lines []string) CacheKey {
	h := sha256.New()
	var lenBuf [8]byte

	for _, line := range lines {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(line)))
		h.Write(lenBuf[:])
		io.WriteString(h, line)
	}

	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}

// CacheKeyLayerSet keys an image by the chain digest of its full layer set,
// so an image is reused only when base, dependencies, and sources all match.
func CacheKeyLayerSet(set *layers.Set) CacheKey {
	return CacheKey(set.Digest())
}

// CacheKeyBuild combines the layer-set digest with the exact Dockerfile
// lines. Runtime-only settings (announced port, launch command) live in the
// Dockerfile but not in the layer inputs, so both must participate or a
// port change could reuse a stale image.
func CacheKeyBuild(set *layers.Set, lines []string) CacheKey {
	combined := make([]string, 0, len(lines)+1)
	combined = append(combined, string(set.Digest()))
	combined = append(combined, lines...)
	return CacheKeyDockerfileLines(combined)
}
