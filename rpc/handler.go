package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolnode/core"
	"github.com/tolelom/tolnode/indexer"
	"github.com/tolelom/tolnode/storage"
)

// Handler holds all dependencies needed to serve RPC methods. It is
// strictly read-only: every method resolves to ChainStore.ReadAll/Latest
// or an indexer snapshot, never AppendIfValid or WriteAll, so the
// inspector can never become a second writer of the chain file.
type Handler struct {
	store *storage.ChainStore
	idx   *indexer.Indexer
}

// NewHandler creates an RPC Handler.
func NewHandler(store *storage.ChainStore, idx *indexer.Indexer) *Handler {
	return &Handler{store: store, idx: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getChainHeight":
		return h.getChainHeight(req)

	case "getBlock":
		return h.getBlock(req)

	case "getTip":
		return h.getTip(req)

	case "getStats":
		return okResponse(req.ID, h.idx.Snapshot())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getChainHeight(req Request) Response {
	chain, err := h.store.ReadAll()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, len(chain)-1)
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string  `json:"hash"`
		Height *uint64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	chain, err := h.store.ReadAll()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}

	switch {
	case params.Hash != "":
		for _, b := range chain {
			if b.Hash == params.Hash {
				return okResponse(req.ID, b)
			}
		}
		return errResponse(req.ID, CodeInvalidParams, "no block with that hash")

	case params.Height != nil:
		if *params.Height >= uint64(len(chain)) {
			return errResponse(req.ID, CodeInvalidParams, "height out of range")
		}
		return okResponse(req.ID, chain[*params.Height])

	default:
		return errResponse(req.ID, CodeInvalidParams, "hash or height is required")
	}
}

func (h *Handler) getTip(req Request) Response {
	tip, err := h.store.Latest()
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return errResponse(req.ID, CodeInternalError, "chain is empty")
		}
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, tip)
}
