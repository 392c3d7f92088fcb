package network

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	multiaddr "github.com/multiformats/go-multiaddr"
)

// defaultListenAddr matches the spec's "listens on /ip4/0.0.0.0/tcp/0":
// an OS-assigned port on every interface.
const defaultListenAddr = "/ip4/0.0.0.0/tcp/0"

// mdnsServiceTag namespaces this node's mDNS announcements from unrelated
// libp2p applications that might be running on the same LAN.
const mdnsServiceTag = "tolnode-gossip"

// swarm bundles the transport host together with the three protocols the
// Node composes over it: gossip pub/sub, LAN discovery, and the DHT.
type swarm struct {
	host      host.Host
	pubsub    *pubsub.PubSub
	topic     *pubsub.Topic
	sub       *pubsub.Subscription
	mdns      mdns.Service
	dht       *DHT
	discovery chan discoveryEvent
	events    chan swarmEvent
}

// newSwarm builds the transport (encrypted, multiplexed TCP via
// go-libp2p's default Noise/yamux stack), subscribes to the gossip topic,
// starts LAN discovery, and brings up the DHT. listenAddr defaults to
// defaultListenAddr when empty.
func newSwarm(ctx context.Context, priv libp2pcrypto.PrivKey, listenAddr, dhtDataDir string) (*swarm, error) {
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}
	addr, err := multiaddr.NewMultiaddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("parse listen addr %q: %w", listenAddr, err)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrs(addr),
	)
	if err != nil {
		return nil, fmt.Errorf("start libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("start gossipsub: %w", err)
	}

	topic, err := ps.Join(TopicName)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("join topic %q: %w", TopicName, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("subscribe to topic %q: %w", TopicName, err)
	}

	discoveryCh := make(chan discoveryEvent, 32)
	mdnsSvc := mdns.NewMdnsService(h, mdnsServiceTag, newMdnsNotifee(discoveryCh))
	if err := mdnsSvc.Start(); err != nil {
		h.Close()
		return nil, fmt.Errorf("start mdns: %w", err)
	}

	kad, err := newDHT(ctx, h, dhtDataDir)
	if err != nil {
		h.Close()
		return nil, err
	}

	swarmEvents := make(chan swarmEvent, 32)
	h.Network().Notify(&connNotifiee{out: swarmEvents})

	return &swarm{
		host:      h,
		pubsub:    ps,
		topic:     topic,
		sub:       sub,
		mdns:      mdnsSvc,
		dht:       newDHTWrapper(kad),
		discovery: discoveryCh,
		events:    swarmEvents,
	}, nil
}

// Publish sends data on the gossip topic.
func (s *swarm) Publish(ctx context.Context, data []byte) error {
	return s.topic.Publish(ctx, data)
}

// ListenAddrs returns the multiaddresses the host ended up listening on,
// for the startup log line.
func (s *swarm) ListenAddrs() []multiaddr.Multiaddr {
	return s.host.Addrs()
}

// Close tears down mDNS, the DHT, and the host. There is no protocol-level
// graceful-quit message — this just releases local resources.
func (s *swarm) Close() error {
	_ = s.mdns.Close()
	_ = s.dht.kad.Close()
	return s.host.Close()
}
