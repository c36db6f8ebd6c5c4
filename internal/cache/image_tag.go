package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"unicode"
)

// ComposeImageTag returns a Docker-safe tag from an optional prefix and two hex cache keys.
// Result is either "<prefix>-<64-hex>" (prefix ≤ 63 chars after sanitization) or just "<64-hex>".
func ComposeImageTag(prefix string, a, b CacheKey) string {
	// Decode hex -> raw bytes; be defensive if inputs aren't valid hex.
	ah, errA := hex.DecodeString(string(a))
	if errA != nil {
		ah = []byte(a)
	}
	bh, errB := hex.DecodeString(string(b))
	if errB != nil {
		bh = []byte(b)
	}

	// Length-prefix and hash raw bytes of both parts to avoid ambiguity.
	h := sha256.New()
	var len8 [8]byte
	putU64 := func(n int) {
		binary.BigEndian.PutUint64(len8[:], uint64(n))
		h.Write(len8[:])
	}
	putU64(len(ah))
	h.Write(ah)
	putU64(len(bh))
	h.Write(bh)
	core := hex.EncodeToString(h.Sum(nil)) // 64 chars

	pfx := sanitizeTagPrefix(prefix)
	if pfx == "" {
		return core
	}

	// Enforce overall 128-char limit: "<pfx>-<core>" => pfx ≤ 63.
	if len(pfx) > 63 {
		pfx = pfx[:63]
	}
	return pfx + "-" + core
}

// sanitizeTagPrefix keeps only [A-Za-z0-9_.-], lowercases, trims leading '.'/'-'.
// Returns "" if nothing valid remains.
func sanitizeTagPrefix(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			// else drop
		}
	}
	out := b.String()
	out = strings.TrimLeft(out, ".-")
	return out
}
