// Package layers models an image as an ordered, append-only sequence of
// content-addressed snapshots. A Set is never mutated in place: appending
// derives every later digest from the chain so far, which is what makes
// "same inputs => same image identity" checkable.
package layers

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
)

type (
	Digest string
	Kind   string
)

const (
	KindBase         Kind = "base"
	KindDependencies Kind = "dependencies"
	KindSources      Kind = "sources"
)

// Layer is one snapshot in the chain. ChainDigest commits to every earlier
// layer as well as this one, OCI-style.
type Layer struct {
	Kind        Kind
	Digest      Digest
	ChainDigest Digest
}

// Set is the ordered layer sequence. The zero value is an empty chain.
type Set struct {
	layers []Layer
}

var ErrFixedOrder = errors.New("layer order is fixed: base, dependencies, sources")

var order = []Kind{KindBase, KindDependencies, KindSources}

// Append derives a layer digest from the given inputs and chains it onto the
// set. Kinds must arrive in the fixed build order; anything else is a
// programming error surfaced as ErrFixedOrder.
func (s *Set) Append(kind Kind, inputs ...string) (Layer, error) {
	if len(s.layers) >= len(order) || order[len(s.layers)] != kind {
		return Layer{}, ErrFixedOrder
	}

	d := hashInputs(inputs)
	chain := d
	if len(s.layers) > 0 {
		chain = hashInputs([]string{string(s.layers[len(s.layers)-1].ChainDigest), string(d)})
	}

	layer := Layer{Kind: kind, Digest: d, ChainDigest: chain}
	s.layers = append(s.layers, layer)
	return layer, nil
}

// Layers returns a copy of the chain; the set itself stays append-only.
func (s *Set) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Layer returns the snapshot of the given kind, if present.
func (s *Set) Layer(kind Kind) (Layer, bool) {
	for _, l := range s.layers {
		if l.Kind == kind {
			return l, true
		}
	}
	return Layer{}, false
}

// Digest is the identity of the whole set: the chain digest of the last
// layer, or empty for an empty set.
func (s *Set) Digest() Digest {
	if len(s.layers) == 0 {
		return ""
	}
	return s.layers[len(s.layers)-1].ChainDigest
}

// ForBuild assembles the canonical three-layer set for one build: the pinned
// base image, the dependency-layer instructions, and the source snapshot
// digest.
func ForBuild(baseImage string, dependencyInputs []string, sourceDigest string) (*Set, error) {
	s := &Set{}
	if _, err := s.Append(KindBase, baseImage); err != nil {
		return nil, err
	}
	if _, err := s.Append(KindDependencies, dependencyInputs...); err != nil {
		return nil, err
	}
	if _, err := s.Append(KindSources, sourceDigest); err != nil {
		return nil, err
	}
	return s, nil
}

// hashInputs length-prefixes each input before hashing to avoid collisions
// between sequences like ["ab", "c"] and ["a", "bc"].
func hashInputs(inputs []string) Digest {
	h := sha256.New()
	var lenBuf [8]byte

	for _, in := range inputs {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(in)))
		h.Write(lenBuf[:])
		io.WriteString(h, in)
	}

	return Digest(hex.EncodeToString(h.Sum(nil)))
}
