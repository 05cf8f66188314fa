package brine

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Entry markers for the canonical byte stream.
const (
	markLeaf   byte = 'L'
	markBranch byte = 'B'
	markEnd    byte = 'E'
)

// Fingerprint returns a hex-encoded BLAKE2b-256 digest of the tree.
// Trees that are Equal produce the same fingerprint.
func (t *Tree) Fingerprint() string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only returned for keys longer than 64 bytes.
		panic(err)
	}
	writeCanonical(h, t)
	return hex.EncodeToString(h.Sum(nil))
}

func writeCanonical(h hash.Hash, t *Tree) {
	for _, e := range t.Entries() {
		if e.Value.IsBranch() {
			h.Write([]byte{markBranch})
		} else {
			h.Write([]byte{markLeaf})
		}
		writeString(h, e.Key.Name)
		writeString(h, string(e.Key.Tag))
		if e.Value.IsBranch() {
			writeCanonical(h, e.Value.Tree())
			continue
		}
		writeString(h, e.Value.Text())
	}
	h.Write([]byte{markEnd})
}

// writeString length-prefixes s so adjacent strings cannot collide.
func writeString(h hash.Hash, s string) {
	var n [binary.MaxVarintLen64]byte
	h.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
	h.Write([]byte(s))
}
