package network

import (
	"context"

	libp2pnetwork "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	multiaddr "github.com/multiformats/go-multiaddr"
)

// swarmEventKind discriminates the handful of low-level transport events
// the Node event loop logs.
type swarmEventKind int

const (
	swarmEventNewListenAddr swarmEventKind = iota
	swarmEventDialerConnected
	swarmEventDisconnected
)

type swarmEvent struct {
	kind swarmEventKind
	addr multiaddr.Multiaddr
	peer peer.ID
}

// connNotifiee bridges libp2p's connection-level callbacks onto a channel
// the event loop can select on, so "connection established as dialer" is a
// first-class arm of the cooperative loop rather than a side-effecting
// callback racing with file writes.
type connNotifiee struct {
	out chan<- swarmEvent
}

func (n *connNotifiee) Connected(net libp2pnetwork.Network, c libp2pnetwork.Conn) {
	if c.Stat().Direction == libp2pnetwork.DirOutbound {
		select {
		case n.out <- swarmEvent{kind: swarmEventDialerConnected, peer: c.RemotePeer()}:
		default:
		}
	}
}

func (n *connNotifiee) Disconnected(net libp2pnetwork.Network, c libp2pnetwork.Conn) {
	select {
	case n.out <- swarmEvent{kind: swarmEventDisconnected, peer: c.RemotePeer()}:
	default:
	}
}
func (n *connNotifiee) Listen(net libp2pnetwork.Network, a multiaddr.Multiaddr) {
	select {
	case n.out <- swarmEvent{kind: swarmEventNewListenAddr, addr: a}:
	default:
	}
}
func (n *connNotifiee) ListenClose(libp2pnetwork.Network, multiaddr.Multiaddr) {}

// dhtQueryKind labels which console command a completed DHT query answers.
type dhtQueryKind string

const (
	dhtQueryGet          dhtQueryKind = "get_record"
	dhtQueryPut          dhtQueryKind = "put_record"
	dhtQueryGetProviders dhtQueryKind = "get_providers"
	dhtQueryPutProvider  dhtQueryKind = "start_providing"
)

// dhtQueryResult is pushed onto the Node's dht results channel once a
// console-triggered DHT operation completes, since the underlying calls
// are synchronous/blocking and must not stall the event loop.
type dhtQueryResult struct {
	kind      dhtQueryKind
	key       []byte
	value     []byte
	providers []peer.AddrInfo
	err       error
}

// runDHTQuery executes fn on its own goroutine and reports the outcome
// back onto results, never touching the chain file or any state the event
// loop owns.
func runDHTQuery(ctx context.Context, results chan<- dhtQueryResult, kind dhtQueryKind, key []byte, fn func(context.Context) ([]byte, []peer.AddrInfo, error)) {
	go func() {
		value, providers, err := fn(ctx)
		results <- dhtQueryResult{kind: kind, key: key, value: value, providers: providers, err: err}
	}()
}
