package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// writeString writes a length-prefixed UTF-8 string: a u32 little-endian
// byte count followed by the raw bytes.
func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

// readString reads a length-prefixed UTF-8 string written by writeString.
func readString(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxStringLen {
		return "", fmt.Errorf("%w: string length %d exceeds limit", ErrDecode, n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}

// maxStringLen guards against a corrupt or malicious length prefix causing
// an unbounded allocation while decoding.
const maxStringLen = 64 * 1024 * 1024

// encodeBlock appends the canonical binary encoding of b to buf.
// Field order: id (u64 LE), hash (len-prefixed), previous_hash
// (len-prefixed), timestamp (u64 LE), data (len-prefixed), nonce (u64 LE).
func encodeBlock(buf *bytes.Buffer, b *Block) {
	var u64Buf [8]byte

	binary.LittleEndian.PutUint64(u64Buf[:], b.ID)
	buf.Write(u64Buf[:])

	writeString(buf, b.Hash)
	writeString(buf, b.PreviousHash)

	binary.LittleEndian.PutUint64(u64Buf[:], b.Timestamp)
	buf.Write(u64Buf[:])

	writeString(buf, b.Data)

	binary.LittleEndian.PutUint64(u64Buf[:], b.Nonce)
	buf.Write(u64Buf[:])
}

// decodeBlock reads one block from r in the format written by encodeBlock.
func decodeBlock(r io.Reader) (*Block, error) {
	var u64Buf [8]byte
	b := &Block{}

	if _, err := io.ReadFull(r, u64Buf[:]); err != nil {
		return nil, err
	}
	b.ID = binary.LittleEndian.Uint64(u64Buf[:])

	var err error
	if b.Hash, err = readString(r); err != nil {
		return nil, err
	}
	if b.PreviousHash, err = readString(r); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(r, u64Buf[:]); err != nil {
		return nil, err
	}
	b.Timestamp = binary.LittleEndian.Uint64(u64Buf[:])

	if b.Data, err = readString(r); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(r, u64Buf[:]); err != nil {
		return nil, err
	}
	b.Nonce = binary.LittleEndian.Uint64(u64Buf[:])

	return b, nil
}

// EncodeChain produces the stable binary representation of chain: a u32 LE
// element count followed by each block in order. Two equal chains always
// encode to byte-identical output, which is required for gossip payloads to
// agree across peers.
func EncodeChain(chain Chain) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(chain)))
	buf.Write(countBuf[:])
	for _, b := range chain {
		encodeBlock(&buf, b)
	}
	return buf.Bytes()
}

// DecodeChain parses the binary representation produced by EncodeChain.
// It returns ErrDecode (wrapped) on any malformed input.
func DecodeChain(data []byte) (Chain, error) {
	r := bytes.NewReader(data)
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading chain length: %v", ErrDecode, err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	if count > maxChainLen {
		return nil, fmt.Errorf("%w: chain length %d exceeds limit", ErrDecode, count)
	}
	chain := make(Chain, 0, count)
	for i := uint32(0); i < count; i++ {
		b, err := decodeBlock(r)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrDecode, i, err)
		}
		chain = append(chain, b)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after chain", ErrDecode, r.Len())
	}
	return chain, nil
}

// maxChainLen guards against a corrupt length prefix causing an unbounded
// allocation while decoding a chain.
const maxChainLen = 10_000_000
