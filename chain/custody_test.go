package chain

import (
	"encoding/json"
	"testing"

	"github.com/beco/beconode/permission"
)

type testPrincipal string

func (p testPrincipal) PrincipalID() string { return string(p) }

func TestCustodyAppendAndHasAlias(t *testing.T) {
	owner := testPrincipal("owner")
	c := NewCustody("owner", EVM)
	if c.HasAlias("primary", owner) {
		t.Fatal("empty custody should not have any alias")
	}
	key := Key{Alias: "primary", PublicKey: "pub", PrivateKey: "priv"}
	if err := c.Append(key, owner); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !c.HasAlias("primary", owner) {
		t.Fatal("expected alias to be present after append")
	}
}

func TestCustodyHasAliasFalseWithoutAccess(t *testing.T) {
	owner := testPrincipal("owner")
	stranger := testPrincipal("stranger")
	c := NewCustody("owner", EVM)
	c.Append(Key{Alias: "primary"}, owner)
	if c.HasAlias("primary", stranger) {
		t.Fatal("a caller without read access must never see a false positive")
	}
}

func TestCustodyPublicKeysHidesPrivateKey(t *testing.T) {
	owner := testPrincipal("owner")
	c := NewCustody("owner", XRPL)
	addr := "raddress"
	c.Append(Key{Alias: "primary", PublicKey: "pub", PrivateKey: "secret", ChainSpecificAddress: &addr}, owner)

	pubs, err := c.PublicKeys(owner)
	if err != nil {
		t.Fatalf("public keys: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Address != addr {
		t.Fatalf("unexpected public keys: %+v", pubs)
	}
}

func TestAppendRejectsStranger(t *testing.T) {
	owner := testPrincipal("owner")
	stranger := testPrincipal("stranger")
	c := NewCustody("owner", EVM)
	if err := c.Append(Key{Alias: "x"}, stranger); err == nil {
		t.Fatal("expected stranger append to be rejected")
	}
	if c.HasAlias("x", owner) {
		t.Fatal("rejected append must not have mutated custody")
	}
}

func TestCustodyJSONRoundTripPreservesKeys(t *testing.T) {
	owner := testPrincipal("owner")
	c := NewCustody("owner", EVM)
	c.Append(Key{Alias: "primary", PublicKey: "pub", PrivateKey: "priv"}, owner)

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Custody
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.HasAlias("primary", owner) {
		t.Fatal("expected alias to survive a JSON round trip")
	}
}

var _ permission.Principal = testPrincipal("")
