// Package evm registers the EVM key-generation arm of chain.Registry.
package evm

import (
	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/crypto"
)

func init() {
	chain.Register(chain.EVM, generate)
}

// generate produces an ed25519 keypair and a "0x"-prefixed address derived
// from it. A production EVM integration would use secp256k1 and a Keccak
// address derivation; neither is available in this module's dependency
// set, so this mirrors the node's own ed25519-based address scheme instead
// of inventing a dependency.
func generate(_ *string) (publicKey, privateKey string, address *string, err error) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return "", "", nil, err
	}
	addr := "0x" + pub.Address()
	return pub.Hex(), priv.Hex(), &addr, nil
}
