// Package xrpl registers the XRPL key-generation arm of chain.Registry.
package xrpl

import (
	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/crypto"
)

func init() {
	chain.Register(chain.XRPL, generate)
}

// generate produces an ed25519 keypair and derives a classic-address-style
// identifier by hashing the public key, the same derivation the base
// crypto package uses for node addresses.
func generate(_ *string) (publicKey, privateKey string, address *string, err error) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return "", "", nil, err
	}
	addr := "r" + pub.Address()
	return pub.Hex(), priv.Hex(), &addr, nil
}
