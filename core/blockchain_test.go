package core

import (
	"errors"
	"testing"
)

func mustMinedSuccessor(t *testing.T, prev *Block, data string, difficulty int) *Block {
	t.Helper()
	b := NewBlock(prev.ID+1, prev.Hash, data)
	Mine(b, difficulty)
	return b
}

func TestValidateChainAcceptsGenesisOnly(t *testing.T) {
	chain := Chain{Genesis()}
	if err := ValidateChain(chain, 4); err != nil {
		t.Errorf("genesis-only chain should validate: %v", err)
	}
}

func TestValidateChainClosure(t *testing.T) {
	const difficulty = 2
	chain := Chain{Genesis()}
	for i := 0; i < 5; i++ {
		tip := chain[len(chain)-1]
		chain = append(chain, mustMinedSuccessor(t, tip, "data", difficulty))
		if err := ValidateChain(chain, difficulty); err != nil {
			t.Fatalf("chain invalid after appending block %d: %v", i+1, err)
		}
	}
}

func TestValidateSuccessorRejectsBadID(t *testing.T) {
	genesis := Genesis()
	bad := NewBlock(5, genesis.Hash, "x") // should be ID 1
	Mine(bad, 1)
	if err := ValidateSuccessor(genesis, bad, 1, true); err == nil {
		t.Error("expected an id-continuity error")
	}
}

func TestValidateSuccessorRejectsBrokenLinkage(t *testing.T) {
	genesis := Genesis()
	bad := NewBlock(1, "not-the-genesis-hash", "x")
	Mine(bad, 1)
	if err := ValidateSuccessor(genesis, bad, 1, true); err == nil {
		t.Error("expected a previous_hash linkage error")
	}
}

func TestValidateSuccessorRejectsTamperedHash(t *testing.T) {
	genesis := Genesis()
	bad := NewBlock(1, genesis.Hash, "x")
	Mine(bad, 1)
	bad.Data = "tampered"
	if err := ValidateSuccessor(genesis, bad, 1, true); err == nil {
		t.Error("expected a hash-mismatch error after tampering")
	}
}

func TestValidateSuccessorRejectsInsufficientProofOfWork(t *testing.T) {
	genesis := Genesis()
	unmined := NewBlock(1, genesis.Hash, "x")
	unmined.Hash = HashOf(unmined)
	if err := ValidateSuccessor(genesis, unmined, 4, true); err == nil {
		t.Error("expected a proof-of-work error")
	}
	// checkPoW=false (pre-mine validation) should not care about the prefix.
	if err := ValidateSuccessor(genesis, unmined, 4, false); err != nil {
		t.Errorf("pre-mine validation should skip the PoW check: %v", err)
	}
}

func TestValidateChainReportsFirstBadIndex(t *testing.T) {
	genesis := Genesis()
	good := mustMinedSuccessor(t, genesis, "ok", 1)
	bad := NewBlock(2, "wrong-link", "bad")
	Mine(bad, 1)
	chain := Chain{genesis, good, bad}

	err := ValidateChain(chain, 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	var chainErr *InvalidChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *InvalidChainError, got %T", err)
	}
	if chainErr.Index != 2 {
		t.Errorf("Index = %d, want 2", chainErr.Index)
	}
}
