// Package storage implements the Chain Store: the sole-writer, file-backed
// persistence layer for the canonical chain, plus a generic LevelDB-backed
// key-value DB used for secondary (non-authoritative) state.
package storage

import (
	"os"
	"path/filepath"

	"github.com/tolelom/tolnode/core"
)

// DefaultChainFile is the fixed relative path used when no override is
// configured.
const DefaultChainFile = "./blockchain"

// ChainStore reads and writes the canonical chain on disk. It holds no
// long-lived file handle or in-memory cache of the chain: every operation
// opens, reads or writes, and closes the file, so there is exactly one
// place a write can happen and no risk of an in-memory copy diverging from
// what's on disk. Callers (the Node event loop) are responsible for never
// running two mutating operations concurrently.
type ChainStore struct {
	path       string
	difficulty int
}

// NewChainStore returns a ChainStore backed by the file at path, validating
// and mining blocks against difficulty.
func NewChainStore(path string, difficulty int) *ChainStore {
	if path == "" {
		path = DefaultChainFile
	}
	return &ChainStore{path: path, difficulty: difficulty}
}

// Difficulty returns the configured proof-of-work difficulty.
func (s *ChainStore) Difficulty() int { return s.difficulty }

// ReadAll opens the chain file, reads its entire contents, and decodes an
// ordered sequence of blocks. A missing file is not an error: it decodes to
// an empty chain, leaving initialization to EnsureGenesis.
func (s *ChainStore) ReadAll() (core.Chain, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Chain{}, nil
		}
		return nil, &IoError{Op: "read " + s.path, Err: err}
	}
	if len(data) == 0 {
		return core.Chain{}, nil
	}
	chain, err := core.DecodeChain(data)
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// WriteAll truncates-and-writes the chain file with the serialized
// sequence. The write goes to a temp file in the same directory followed
// by a rename so a crash mid-write cannot leave a half-written chain file
// behind.
func (s *ChainStore) WriteAll(chain core.Chain) error {
	data := core.EncodeChain(chain)
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".blockchain-*.tmp")
	if err != nil {
		return &IoError{Op: "create temp file in " + dir, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IoError{Op: "write " + tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IoError{Op: "close " + tmpName, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &IoError{Op: "rename " + tmpName + " to " + s.path, Err: err}
	}
	return nil
}

// EnsureGenesis writes a one-element chain containing the genesis block if
// the chain file does not exist or decodes to an empty sequence.
// Idempotent.
func (s *ChainStore) EnsureGenesis() error {
	chain, err := s.ReadAll()
	if err != nil {
		return err
	}
	if len(chain) > 0 {
		return nil
	}
	return s.WriteAll(core.Chain{core.Genesis()})
}

// Latest returns the last block in the chain. Returns core.ErrNotFound if
// the chain is empty (should not happen after EnsureGenesis).
func (s *ChainStore) Latest() (*core.Block, error) {
	chain, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, core.ErrNotFound
	}
	return chain[len(chain)-1], nil
}

// AppendIfValid reads the current chain, verifies candidate is a valid
// successor of the tip (id, linkage, hash, and proof-of-work all checked),
// appends it, and rewrites the file.
func (s *ChainStore) AppendIfValid(candidate *core.Block) error {
	chain, err := s.ReadAll()
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return &core.InvalidBlockError{Reason: "chain store has no tip to extend"}
	}
	tip := chain[len(chain)-1]
	if err := core.ValidateSuccessor(tip, candidate, s.difficulty, true); err != nil {
		return &core.InvalidBlockError{Reason: err.Error()}
	}
	chain = append(chain, candidate)
	return s.WriteAll(chain)
}

// ValidateChain checks every invariant on all indices >= 1 of chain; the
// genesis block is accepted unconditionally.
func (s *ChainStore) ValidateChain(chain core.Chain) error {
	return core.ValidateChain(chain, s.difficulty)
}

// ChooseChain decodes and validates both localBytes and remoteBytes and
// returns the bytes of the canonical winner:
//
//  1. both valid: the strictly longer one; local wins ties.
//  2. exactly one valid: that one.
//  3. neither valid: local (never adopt an invalid remote).
//
// Decode failure counts as validation failure for that side. An
// InvalidInputError is returned only when both inputs fail to decode.
func (s *ChainStore) ChooseChain(localBytes, remoteBytes []byte) ([]byte, error) {
	localChain, localErr := core.DecodeChain(localBytes)
	remoteChain, remoteErr := core.DecodeChain(remoteBytes)
	if localErr != nil && remoteErr != nil {
		return nil, &InvalidInputError{Reason: "neither chain decodes"}
	}

	localValid := localErr == nil && s.ValidateChain(localChain) == nil
	remoteValid := remoteErr == nil && s.ValidateChain(remoteChain) == nil

	switch {
	case localValid && remoteValid:
		if len(remoteChain) > len(localChain) {
			return remoteBytes, nil
		}
		return localBytes, nil
	case localValid:
		return localBytes, nil
	case remoteValid:
		return remoteBytes, nil
	default:
		return localBytes, nil
	}
}
