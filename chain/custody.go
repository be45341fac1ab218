package chain

import (
	"encoding/json"

	"github.com/beco/beconode/permission"
)

// Custody is a PermissionModel-gated list of Keys for one Blockchain,
// scoped to one user. Aliases must be unique within the list.
type Custody struct {
	model *permission.Model[[]Key]
}

// NewCustody creates an empty, owner-gated custody list.
func NewCustody(ownerID string, bc Blockchain) *Custody {
	return &Custody{model: permission.New[[]Key](ownerID, nil, "chain_custody:"+string(bc))}
}

// MarshalJSON delegates to the wrapped model — Custody's only field is
// unexported, so without this the model (and every key in it) would be
// silently dropped on every storage write.
func (c *Custody) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.model)
}

// UnmarshalJSON restores a Custody from its MarshalJSON encoding.
func (c *Custody) UnmarshalJSON(data []byte) error {
	c.model = &permission.Model[[]Key]{}
	return json.Unmarshal(data, c.model)
}

// Model exposes the underlying ACL gate, so callers can grant viewer/editor
// access the same way they do for any other permission-gated field.
func (c *Custody) Model() *permission.Model[[]Key] { return c.model }

// HasAlias reports whether alias is already present, as seen by caller.
// A caller without read access sees no aliases, never a false positive.
func (c *Custody) HasAlias(alias string, caller permission.Principal) bool {
	keys, err := c.model.Value(caller)
	if err != nil {
		return false
	}
	for _, k := range keys {
		if k.Alias == alias {
			return true
		}
	}
	return false
}

// Append adds key to the list if caller has write access.
func (c *Custody) Append(key Key, caller permission.Principal) error {
	keys, err := c.model.ValueMut(caller)
	if err != nil {
		return err
	}
	*keys = append(*keys, key)
	return nil
}

// PublicKeys projects the list through Key.Public() for viewers who cannot
// see private key material.
func (c *Custody) PublicKeys(caller permission.Principal) ([]PublicKey, error) {
	keys, err := c.model.Value(caller)
	if err != nil {
		return nil, err
	}
	out := make([]PublicKey, len(keys))
	for i, k := range keys {
		out[i] = k.Public()
	}
	return out, nil
}
