package network

import (
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// GenerateIdentity creates a fresh Ed25519 keypair and the peer ID derived
// from it. It is called exactly once per process start — the spec treats
// node identity as ephemeral, never persisted across restarts.
func GenerateIdentity() (libp2pcrypto.PrivKey, peer.ID, error) {
	priv, _, err := libp2pcrypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, "", err
	}
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, "", err
	}
	return priv, id, nil
}

// ShortID returns the last 7 characters of id's string form, used as a
// display handle for text gossip messages that don't decode as a chain.
func ShortID(id peer.ID) string {
	s := id.String()
	if len(s) <= 7 {
		return s
	}
	return s[len(s)-7:]
}
