package network

import (
	"github.com/libp2p/go-libp2p/core/peer"
)

// discoveryEvent is pushed onto the Node's discovery channel by the mDNS
// notifee. The notifee always sends expired=false, and handleDiscovery does
// not read the field: it connects to the peer and records the sighting. It
// does not keep a gossip explicit-peer set and does not add the peer to the
// DHT routing table itself.
type discoveryEvent struct {
	info    peer.AddrInfo
	expired bool
}

// mdnsNotifee implements the mdns.Notifee interface expected by
// go-libp2p's built-in mDNS discovery service. It never expires peers
// itself — go-libp2p's mDNS implementation only calls HandlePeerFound, so
// expiry is inferred by the Node from connection-level disconnect events
// (see node.go), which this type does not need to know about.
type mdnsNotifee struct {
	out chan<- discoveryEvent
}

func newMdnsNotifee(out chan<- discoveryEvent) *mdnsNotifee {
	return &mdnsNotifee{out: out}
}

// HandlePeerFound is invoked by the mDNS service for every peer discovered
// on the local network.
func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	select {
	case n.out <- discoveryEvent{info: info, expired: false}:
	default:
		// Event loop is behind; dropping a rediscovery notification is
		// harmless since mDNS re-announces periodically.
	}
}
