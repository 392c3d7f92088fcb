// Package core defines the Block and Chain types shared by the chain store,
// the miner, and the network layer, along with the canonical binary
// encoding used both for on-disk persistence and for gossip payloads.
package core

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/tolelom/tolnode/crypto"
)

// ErrNotFound is returned when a requested block does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrDecode is wrapped into more specific errors when a chain or block
// fails to parse.
var ErrDecode = errors.New("decode error")

// GenesisHash is the sentinel hash of the genesis block. It is not a digest
// of the block and is exempt from the hash and proof-of-work checks, which
// start at index 1; every peer must use this exact value for chains to
// agree byte-for-byte.
const GenesisHash = "000000000"

// Block is one immutable record in the chain, linked to its predecessor by
// hash. Blocks carry opaque payload bytes only — there is no transaction
// semantics, signature, or identity attached to the content.
type Block struct {
	ID           uint64 `json:"id"`
	PreviousHash string `json:"previous_hash"`
	Timestamp    uint64 `json:"timestamp"`
	Data         string `json:"data"`
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
}

// Chain is an ordered sequence of blocks starting with genesis at index 0.
type Chain []*Block

// NewBlock creates an unsigned, unmined block. Timestamp is set to the
// current wall-clock time in milliseconds; Nonce and Hash start zeroed.
func NewBlock(id uint64, previousHash, data string) *Block {
	return &Block{
		ID:           id,
		PreviousHash: previousHash,
		Timestamp:    uint64(time.Now().UnixMilli()),
		Data:         data,
		Nonce:        0,
		Hash:         "",
	}
}

// Genesis returns the fixed genesis block. It is not mined and its Hash is
// the GenesisHash sentinel rather than a real PoW-satisfying digest.
func Genesis() *Block {
	return &Block{
		ID:           0,
		PreviousHash: "",
		Timestamp:    uint64(time.Now().UnixMilli()),
		Data:         "Genesis",
		Nonce:        0,
		Hash:         GenesisHash,
	}
}

// HashOf returns the canonical hex SHA-256 digest of b with Hash treated as
// empty. Field order is (id, hash="", previous_hash, timestamp, data,
// nonce), matching the on-disk/wire binary encoding exactly so all
// implementations agree.
func HashOf(b *Block) string {
	var buf bytes.Buffer
	clone := *b
	clone.Hash = ""
	encodeBlock(&buf, &clone)
	return crypto.Hash(buf.Bytes())
}

// Mine repeatedly increments b.Nonce and recomputes b.Hash until the hash
// begins with difficulty ASCII '0' characters. It mutates b in place and
// runs to completion — there is no cancellation or randomness.
func Mine(b *Block, difficulty int) {
	prefix := strings.Repeat("0", difficulty)
	for {
		b.Hash = HashOf(b)
		if strings.HasPrefix(b.Hash, prefix) {
			return
		}
		b.Nonce++
	}
}

// HasValidProofOfWork reports whether b.Hash begins with difficulty
// leading '0' characters.
func HasValidProofOfWork(b *Block, difficulty int) bool {
	return strings.HasPrefix(b.Hash, strings.Repeat("0", difficulty))
}
