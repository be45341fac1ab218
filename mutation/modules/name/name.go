// Package name registers the FirstName/OtherNames/LastName mutation
// handlers: the three permission-gated scalar profile fields.
package name

import (
	"encoding/json"
	"fmt"

	"github.com/beco/beconode/mutation"
)

func init() {
	mutation.Register(mutation.FirstName, handleFirstName)
	mutation.Register(mutation.OtherNames, handleOtherNames)
	mutation.Register(mutation.LastName, handleLastName)
}

func handleFirstName(ctx *mutation.Context, payload json.RawMessage) error {
	var p mutation.FirstNamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode first_name payload: %w", err)
	}
	return ctx.User.Details.FirstName.Update(p.Value, ctx.CallingUser)
}

func handleOtherNames(ctx *mutation.Context, payload json.RawMessage) error {
	var p mutation.OtherNamesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode other_names payload: %w", err)
	}
	return ctx.User.Details.OtherNames.Update(p.Value, ctx.CallingUser)
}

func handleLastName(ctx *mutation.Context, payload json.RawMessage) error {
	var p mutation.LastNamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode last_name payload: %w", err)
	}
	return ctx.User.Details.LastName.Update(p.Value, ctx.CallingUser)
}
