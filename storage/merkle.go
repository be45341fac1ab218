package storage

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/beco/beconode/crypto"
)

// ComputeLeafRoot returns the deterministic hex root over a user's
// appended leaves: length-prefix encode each leaf in sorted order and hash
// the concatenation, the same scheme the world-state root used to cover an
// entire key-value snapshot, narrowed here to one user's leaf set.
func ComputeLeafRoot(leaves [][]byte) string {
	sorted := make([][]byte, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, leaf := range sorted {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(leaf)))
		buf.Write(lenBuf[:])
		buf.Write(leaf)
	}
	return crypto.Hash(buf.Bytes())
}
