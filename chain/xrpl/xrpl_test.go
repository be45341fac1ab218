package xrpl

import (
	"strings"
	"testing"

	"github.com/beco/beconode/chain"
)

func TestGenerateProducesRPrefixedAddress(t *testing.T) {
	pub, priv, addr, err := chain.DefaultFactory().Generate(chain.XRPL, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pub == "" || priv == "" {
		t.Fatal("expected non-empty public/private key hex")
	}
	if addr == nil || !strings.HasPrefix(*addr, "r") {
		t.Fatalf("expected r-prefixed address, got %v", addr)
	}
}
