package nodekey

import (
	"os"

	"github.com/beco/beconode/crypto"
	"github.com/beco/beconode/envelope"
)

// Identity is a node's own persistent keypair and derived PeerID.
type Identity struct {
	Public  crypto.PublicKey
	Private crypto.PrivateKey
}

// PeerID derives the stable gossip identifier for this node from its
// public key, the same address-hash scheme used for chain custody keys.
func (i Identity) PeerID() envelope.PeerID {
	return envelope.PeerID(i.Public.Address())
}

// LoadOrCreate loads the keystore at path, generating and persisting a new
// keypair on first run if it does not yet exist.
func LoadOrCreate(path, password string) (Identity, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		priv, pub, err := crypto.GenerateKeyPair()
		if err != nil {
			return Identity{}, err
		}
		if err := SaveKey(path, password, priv); err != nil {
			return Identity{}, err
		}
		return Identity{Public: pub, Private: priv}, nil
	}
	priv, err := LoadKey(path, password)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Public: priv.Public(), Private: priv}, nil
}
