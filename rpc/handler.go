package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/beco/beconode/mutation"
	"github.com/beco/beconode/node"
	"github.com/beco/beconode/protoerr"
	"github.com/google/uuid"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	node *node.Node
}

// NewHandler creates an RPC Handler over n.
func NewHandler(n *node.Node) *Handler {
	return &Handler{node: n}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "AddUser":
		return h.addUser(req)

	case "ListUser":
		return h.listUser(req)

	case "AddAccount":
		return h.addAccount(req)

	case "UpdateFirstName":
		return h.updateFirstName(req)

	case "UpdateOtherNames":
		return h.updateOtherNames(req)

	case "UpdateLastName":
		return h.updateLastName(req)

	case "AddLinkedUser":
		return h.addLinkedUser(req)

	case "RemoveLinkedUser":
		return h.removeLinkedUser(req)

	case "GetLinkedBy":
		return h.getLinkedBy(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) addUser(req Request) Response {
	user, err := h.node.AddUser()
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) listUser(req Request) Response {
	var params struct {
		UserID      uuid.UUID `json:"user_id"`
		CallingUser uuid.UUID `json:"calling_user"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	user, err := h.node.ListUser(params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) addAccount(req Request) Response {
	var params struct {
		UserID      uuid.UUID                  `json:"user_id"`
		CallingUser uuid.UUID                  `json:"calling_user"`
		Payload     mutation.AddAccountPayload `json:"payload"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Payload.Blockchain == "" || params.Payload.Alias == "" {
		return errResponse(req.ID, CodeInvalidParams, "blockchain and alias are required")
	}
	user, err := h.node.Propose(mutation.AddAccount, params.Payload, params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) updateFirstName(req Request) Response {
	var params struct {
		UserID      uuid.UUID                 `json:"user_id"`
		CallingUser uuid.UUID                 `json:"calling_user"`
		Payload     mutation.FirstNamePayload `json:"payload"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	user, err := h.node.Propose(mutation.FirstName, params.Payload, params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) updateOtherNames(req Request) Response {
	var params struct {
		UserID      uuid.UUID                  `json:"user_id"`
		CallingUser uuid.UUID                  `json:"calling_user"`
		Payload     mutation.OtherNamesPayload `json:"payload"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	user, err := h.node.Propose(mutation.OtherNames, params.Payload, params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) updateLastName(req Request) Response {
	var params struct {
		UserID      uuid.UUID                `json:"user_id"`
		CallingUser uuid.UUID                `json:"calling_user"`
		Payload     mutation.LastNamePayload `json:"payload"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	user, err := h.node.Propose(mutation.LastName, params.Payload, params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) addLinkedUser(req Request) Response {
	var params struct {
		UserID      uuid.UUID                     `json:"user_id"`
		CallingUser uuid.UUID                     `json:"calling_user"`
		Payload     mutation.AddLinkedUserPayload `json:"payload"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	user, err := h.node.Propose(mutation.AddLinkedUser, params.Payload, params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) removeLinkedUser(req Request) Response {
	var params struct {
		UserID      uuid.UUID                        `json:"user_id"`
		CallingUser uuid.UUID                        `json:"calling_user"`
		Payload     mutation.RemoveLinkedUserPayload `json:"payload"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	user, err := h.node.Propose(mutation.RemoveLinkedUser, params.Payload, params.UserID, params.CallingUser)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, user)
}

func (h *Handler) getLinkedBy(req Request) Response {
	var params struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.UserID == "" {
		return errResponse(req.ID, CodeInvalidParams, "user_id is required")
	}
	ids, err := h.node.Indexer().GetLinkedBy(params.UserID)
	if err != nil {
		return errFromDomain(req.ID, err)
	}
	return okResponse(req.ID, ids)
}

// errFromDomain maps a domain error onto its JSON-RPC code via the kind the
// node/corroborate/mutation layers already classify it with.
func errFromDomain(id any, err error) Response {
	return errResponse(id, protoerr.RPCCode(protoerr.KindOf(err)), err.Error())
}
