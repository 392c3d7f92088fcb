// Package miner extends the local chain tip by solving proof-of-work for a
// new payload and handing the result to the Node event loop.
package miner

import (
	"fmt"
	"log"

	"github.com/tolelom/tolnode/core"
	"github.com/tolelom/tolnode/events"
	"github.com/tolelom/tolnode/storage"
)

// Miner builds and mines candidate blocks against the chain stored by
// store. It never writes the chain file itself — MineAndPublish only reads
// the current tip, mines, and emits the result for the Node event loop to
// apply.
type Miner struct {
	store *storage.ChainStore
}

// New creates a Miner backed by store.
func New(store *storage.ChainStore) *Miner {
	return &Miner{store: store}
}

// MineAndPublish builds a block extending the current tip with data, mines
// it, and invokes emit with the resulting NodeEvent carrying the full
// serialized chain. I/O failures reading the chain are returned to the
// caller; a candidate that fails pre-mining validation is logged and
// MineAndPublish returns nil without emitting anything — mining a block
// that could never be accepted would be wasted work.
func (m *Miner) MineAndPublish(data string, emit func(events.NodeEvent)) error {
	chain, err := m.store.ReadAll()
	if err != nil {
		return fmt.Errorf("miner: read chain: %w", err)
	}
	if len(chain) == 0 {
		return fmt.Errorf("miner: chain store has no genesis block yet")
	}
	tip := chain[len(chain)-1]

	candidate := core.NewBlock(uint64(len(chain)), tip.Hash, data)
	candidate.Hash = core.HashOf(candidate)

	if err := core.ValidateSuccessor(tip, candidate, m.store.Difficulty(), false); err != nil {
		log.Printf("[miner] candidate block %d invalid, not mining: %v", candidate.ID, err)
		return nil
	}

	core.Mine(candidate, m.store.Difficulty())

	mined := append(chain, candidate)
	emit(events.NodeEvent{
		Type:  events.NodeEventBlockMined,
		Chain: core.EncodeChain(mined),
	})
	return nil
}
