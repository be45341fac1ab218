// Package linkeduser registers the AddLinkedUser/RemoveLinkedUser mutation
// handlers.
package linkeduser

import (
	"encoding/json"
	"fmt"

	"github.com/beco/beconode/mutation"
)

func init() {
	mutation.Register(mutation.AddLinkedUser, handleAddLinkedUser)
	mutation.Register(mutation.RemoveLinkedUser, handleRemoveLinkedUser)
}

func handleAddLinkedUser(ctx *mutation.Context, payload json.RawMessage) error {
	var p mutation.AddLinkedUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode add_linked_user payload: %w", err)
	}
	return ctx.User.AddLinkedUser(p.Target, ctx.CallingUser)
}

func handleRemoveLinkedUser(ctx *mutation.Context, payload json.RawMessage) error {
	var p mutation.RemoveLinkedUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode remove_linked_user payload: %w", err)
	}
	return ctx.User.RemoveLinkedUser(p.TargetID, ctx.CallingUser)
}
