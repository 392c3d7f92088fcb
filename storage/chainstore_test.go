package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tolelom/tolnode/core"
)

func newTestStore(t *testing.T, difficulty int) *ChainStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockchain")
	return NewChainStore(path, difficulty)
}

func mine(t *testing.T, prev *core.Block, data string, difficulty int) *core.Block {
	t.Helper()
	b := core.NewBlock(prev.ID+1, prev.Hash, data)
	core.Mine(b, difficulty)
	return b
}

func TestColdStart(t *testing.T) {
	s := newTestStore(t, 2)
	chain, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll on missing file: %v", err)
	}
	if len(chain) != 0 {
		t.Fatalf("expected empty chain, got %d blocks", len(chain))
	}

	if err := s.EnsureGenesis(); err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}
	chain, err = s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll after EnsureGenesis: %v", err)
	}
	if len(chain) != 1 || chain[0].Hash != core.GenesisHash {
		t.Fatalf("expected a single genesis block, got %+v", chain)
	}

	// Idempotent.
	if err := s.EnsureGenesis(); err != nil {
		t.Fatalf("second EnsureGenesis: %v", err)
	}
	chain, _ = s.ReadAll()
	if len(chain) != 1 {
		t.Fatalf("EnsureGenesis should be idempotent, got %d blocks", len(chain))
	}
}

func TestAppendIfValid(t *testing.T) {
	s := newTestStore(t, 2)
	if err := s.EnsureGenesis(); err != nil {
		t.Fatal(err)
	}
	tip, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	candidate := mine(t, tip, "hello", 2)

	if err := s.AppendIfValid(candidate); err != nil {
		t.Fatalf("AppendIfValid: %v", err)
	}
	chain, _ := s.ReadAll()
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[1].ID != 1 || chain[1].PreviousHash != chain[0].Hash || chain[1].Data != "hello" {
		t.Errorf("appended block mismatch: %+v", chain[1])
	}
}

func TestAppendIfValidRejectsBadSuccessor(t *testing.T) {
	s := newTestStore(t, 2)
	if err := s.EnsureGenesis(); err != nil {
		t.Fatal(err)
	}
	bad := core.NewBlock(7, "wrong-link", "x")
	core.Mine(bad, 2)
	if err := s.AppendIfValid(bad); err == nil {
		t.Error("expected AppendIfValid to reject a bad successor")
	}
	chain, _ := s.ReadAll()
	if len(chain) != 1 {
		t.Errorf("chain should be unchanged, got length %d", len(chain))
	}
}

func TestChooseChainPrefersLongerValid(t *testing.T) {
	s := newTestStore(t, 2)
	local := core.Chain{core.Genesis()}
	local = append(local, mine(t, local[0], "a", 2))

	remote := core.Chain{local[0]}
	remote = append(remote, mine(t, remote[0], "a", 2))
	remote = append(remote, mine(t, remote[1], "b", 2))

	localBytes := core.EncodeChain(local)
	remoteBytes := core.EncodeChain(remote)

	winner, err := s.ChooseChain(localBytes, remoteBytes)
	if err != nil {
		t.Fatalf("ChooseChain: %v", err)
	}
	if string(winner) != string(remoteBytes) {
		t.Error("expected the strictly longer valid remote chain to win")
	}
}

func TestChooseChainLocalWinsTies(t *testing.T) {
	s := newTestStore(t, 2)
	chain := core.Chain{core.Genesis()}
	chain = append(chain, mine(t, chain[0], "x", 2))
	encoded := core.EncodeChain(chain)

	other := core.Chain{chain[0], mine(t, chain[0], "y", 2)}
	otherEncoded := core.EncodeChain(other)

	winner, err := s.ChooseChain(encoded, otherEncoded)
	if err != nil {
		t.Fatal(err)
	}
	if string(winner) != string(encoded) {
		t.Error("equal-length valid chains should resolve to the local bytes")
	}
}

func TestChooseChainRejectsInvalidRemote(t *testing.T) {
	s := newTestStore(t, 2)
	local := core.Chain{core.Genesis()}
	local = append(local, mine(t, local[0], "a", 2))
	localBytes := core.EncodeChain(local)

	// A much longer but structurally broken remote must never win.
	remote := core.Chain{local[0]}
	for i := 0; i < 5; i++ {
		b := core.NewBlock(uint64(i+1), "garbage-link", "x")
		core.Mine(b, 2)
		remote = append(remote, b)
	}
	remoteBytes := core.EncodeChain(remote)

	winner, err := s.ChooseChain(localBytes, remoteBytes)
	if err != nil {
		t.Fatalf("ChooseChain: %v", err)
	}
	if string(winner) != string(localBytes) {
		t.Error("an invalid remote chain must never be adopted regardless of length")
	}
}

func TestChooseChainNeitherDecodes(t *testing.T) {
	s := newTestStore(t, 2)
	_, err := s.ChooseChain([]byte("garbage1"), []byte("garbage2"))
	if err == nil {
		t.Error("expected an InvalidInputError when neither side decodes")
	}
}

func TestWriteAllAtomicRename(t *testing.T) {
	s := newTestStore(t, 2)
	chain := core.Chain{core.Genesis()}
	if err := s.WriteAll(chain); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	read, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 1 {
		t.Fatalf("expected 1 block after WriteAll, got %d", len(read))
	}
	entries, err := os.ReadDir(filepath.Dir(s.path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "blockchain" {
		t.Errorf("expected only the renamed chain file, no temp file left behind, got %v", entries)
	}
}
