package storage

import "testing"

func TestComputeLeafRootOrderIndependent(t *testing.T) {
	a := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	b := [][]byte{[]byte("three"), []byte("one"), []byte("two")}
	if ComputeLeafRoot(a) != ComputeLeafRoot(b) {
		t.Fatal("leaf root should not depend on input order")
	}
}

func TestComputeLeafRootChangesWithContent(t *testing.T) {
	a := [][]byte{[]byte("one")}
	b := [][]byte{[]byte("two")}
	if ComputeLeafRoot(a) == ComputeLeafRoot(b) {
		t.Fatal("different leaf sets should produce different roots")
	}
}

func TestComputeLeafRootEmpty(t *testing.T) {
	if ComputeLeafRoot(nil) == "" {
		t.Fatal("expected a deterministic root even for an empty leaf set")
	}
}
