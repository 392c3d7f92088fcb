package miner

import (
	"path/filepath"
	"testing"

	"github.com/tolelom/tolnode/core"
	"github.com/tolelom/tolnode/events"
	"github.com/tolelom/tolnode/storage"
)

func newTestStore(t *testing.T, difficulty int) *storage.ChainStore {
	t.Helper()
	s := storage.NewChainStore(filepath.Join(t.TempDir(), "blockchain"), difficulty)
	if err := s.EnsureGenesis(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMineAndPublishEmitsValidChain(t *testing.T) {
	store := newTestStore(t, 2)
	m := New(store)

	var got *events.NodeEvent
	err := m.MineAndPublish("hello", func(ev events.NodeEvent) {
		got = &ev
	})
	if err != nil {
		t.Fatalf("MineAndPublish: %v", err)
	}
	if got == nil {
		t.Fatal("expected an event to be emitted")
	}
	if got.Type != events.NodeEventBlockMined {
		t.Errorf("event type = %v, want NodeEventBlockMined", got.Type)
	}

	chain, err := core.DecodeChain(got.Chain)
	if err != nil {
		t.Fatalf("decode emitted chain: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	tip := chain[1]
	if tip.ID != 1 || tip.Data != "hello" || tip.PreviousHash != chain[0].Hash {
		t.Errorf("unexpected tip: %+v", tip)
	}
	if !core.HasValidProofOfWork(tip, 2) {
		t.Errorf("mined tip does not satisfy difficulty: %+v", tip)
	}

	// The Miner must never write the chain file itself.
	onDisk, err := store.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(onDisk) != 1 {
		t.Errorf("chain store should be untouched by the miner, got length %d", len(onDisk))
	}
}

func TestMineAndPublishNoGenesis(t *testing.T) {
	store := storage.NewChainStore(filepath.Join(t.TempDir(), "blockchain"), 2)
	m := New(store)
	called := false
	err := m.MineAndPublish("x", func(events.NodeEvent) { called = true })
	if err == nil {
		t.Fatal("expected an error when the chain store has no genesis block")
	}
	if called {
		t.Error("emit should not be called when there is nothing to extend")
	}
}
