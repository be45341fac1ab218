// Package account registers the AddAccount mutation handler: generating a
// new per-blockchain key and appending it to chain custody.
package account

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beco/beconode/chain"
	"github.com/beco/beconode/mutation"
)

func init() {
	mutation.Register(mutation.AddAccount, handleAddAccount)
}

func handleAddAccount(ctx *mutation.Context, payload json.RawMessage) error {
	var p mutation.AddAccountPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode add_account payload: %w", err)
	}
	if p.Alias == "" {
		return errors.New("alias required")
	}
	bc := chain.Blockchain(p.Blockchain)
	if ctx.KeyFactory == nil {
		return errors.New("no key factory configured")
	}
	return ctx.User.AddAccount(ctx.KeyFactory, bc, p.Algorithm, p.Alias, ctx.CallingUser)
}
