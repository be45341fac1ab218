// Package chain implements the per-blockchain key custody tagged variant:
// a Blockchain enum, the Key/PublicKey shapes, and a self-registering
// KeyFactory registry that chain-specific packages (chain/xrpl, chain/evm)
// plug into via init().
package chain

// Blockchain identifies a key-custody namespace.
type Blockchain string

const (
	XRPL        Blockchain = "XRPL"
	EVM         Blockchain = "EVM"
	Unspecified Blockchain = "UNSPECIFIED"
)

// Key is a single generated credential held in a ChainCustody list.
type Key struct {
	Alias                string  `json:"alias"`
	PublicKey            string  `json:"public_key"`
	PrivateKey           string  `json:"private_key"`
	ChainSpecificAddress *string `json:"chain_specific_address,omitempty"`
}

// Public strips PrivateKey, the projection ChainCustody exposes to viewers.
func (k Key) Public() PublicKey {
	return PublicKey{Alias: k.Alias, Address: k.addressOrPublicKey()}
}

func (k Key) addressOrPublicKey() string {
	if k.ChainSpecificAddress != nil && *k.ChainSpecificAddress != "" {
		return *k.ChainSpecificAddress
	}
	return k.PublicKey
}

// PublicKey is the externally-visible projection of a Key.
type PublicKey struct {
	Alias   string `json:"alias"`
	Address string `json:"address"`
}

// KeyFactory generates new key material for a given blockchain. algorithm
// is chain-specific and may be nil to use the chain's default.
type KeyFactory interface {
	Generate(blockchain Blockchain, algorithm *string) (publicKey, privateKey string, address *string, err error)
}
