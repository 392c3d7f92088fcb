// Package network owns the swarm (transport, gossip, LAN discovery, DHT)
// and the single cooperative event loop that is the sole writer of the
// chain file. Everything else — the Miner, the console — talks to the
// Node through channels. Outside this package the chain file is only read
// (by the Miner and the RPC inspector), apart from the genesis write that
// ChainStore.EnsureGenesis makes at startup, before the loop runs.
package network

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	multiaddr "github.com/multiformats/go-multiaddr"

	"github.com/tolelom/tolnode/core"
	"github.com/tolelom/tolnode/events"
	"github.com/tolelom/tolnode/indexer"
	"github.com/tolelom/tolnode/miner"
	"github.com/tolelom/tolnode/storage"
)

// Node drives the cooperative event loop that multiplexes stdin, internal
// mining-completion events, and network events, and arbitrates the one
// writer of the chain file.
type Node struct {
	id      peer.ID
	priv    libp2pcrypto.PrivKey
	store   *storage.ChainStore
	emitter *events.Emitter
	idx     *indexer.Indexer
	sw      *swarm
	miner   *miner.Miner
	minerIn chan<- events.NodeEvent

	dhtResults chan dhtQueryResult
}

// NewNode generates a fresh identity, brings up the transport/gossip/
// discovery/DHT swarm, and returns a Node ready to Start and Run. minerIn
// is the send side of the channel the Node's own Run loop reads from —
// the Miner, spawned on its own goroutine per mine command, is the only
// other writer.
func NewNode(ctx context.Context, store *storage.ChainStore, emitter *events.Emitter, idx *indexer.Indexer, minerIn chan<- events.NodeEvent, listenAddr, dhtDataDir string) (*Node, error) {
	priv, id, err := GenerateIdentity()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	sw, err := newSwarm(ctx, priv, listenAddr, dhtDataDir)
	if err != nil {
		return nil, err
	}

	return &Node{
		id:         id,
		priv:       priv,
		store:      store,
		emitter:    emitter,
		idx:        idx,
		sw:         sw,
		miner:      miner.New(store),
		minerIn:    minerIn,
		dhtResults: make(chan dhtQueryResult, 32),
	}, nil
}

// ID returns the local peer ID.
func (n *Node) ID() peer.ID { return n.id }

// Start logs the listening addresses and dials the bootstrap multiaddress
// if one was given (the first positional CLI argument). A dial failure is
// logged, not fatal — only bind failures at swarm construction time are
// fatal, and that has already happened by the time Start runs.
func (n *Node) Start(ctx context.Context, bootstrapAddr string) error {
	for _, a := range n.sw.ListenAddrs() {
		log.Printf("[node] listening on %s/p2p/%s", a, n.id)
	}
	log.Printf("[node] peer id: %s", n.id)

	if bootstrapAddr == "" {
		return nil
	}
	maddr, err := multiaddr.NewMultiaddr(bootstrapAddr)
	if err != nil {
		log.Printf("[node] invalid bootstrap multiaddr %q: %v", bootstrapAddr, err)
		return nil
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		log.Printf("[node] invalid bootstrap multiaddr %q: %v", bootstrapAddr, err)
		return nil
	}
	if err := n.sw.host.Connect(ctx, *info); err != nil {
		log.Printf("[node] dial bootstrap %s: %v", bootstrapAddr, err)
		return nil
	}
	log.Printf("[node] dialed bootstrap peer %s", info.ID)
	return nil
}

// Close releases the swarm's local resources. There is no graceful-quit
// wire message; this only tears down local state.
func (n *Node) Close() error {
	return n.sw.Close()
}

// Run is the cooperative single-task select loop: stdin, the Miner's
// internal channel, and swarm events, one arm per iteration, until ctx is
// canceled. Only this loop ever calls n.store.WriteAll / AppendIfValid.
func (n *Node) Run(ctx context.Context, minerEvents <-chan events.NodeEvent) {
	lines := stdinLines(ctx)
	gossipMsgs := gossipMessages(ctx, n.sw.sub)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-minerEvents:
			if !ok {
				minerEvents = nil
				continue
			}
			n.handleNodeEvent(ctx, ev)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			n.handleConsoleLine(ctx, line)

		case msg, ok := <-gossipMsgs:
			if !ok {
				gossipMsgs = nil
				continue
			}
			n.handleGossipMessage(msg)

		case ev, ok := <-n.sw.discovery:
			if !ok {
				continue
			}
			n.handleDiscovery(ctx, ev)

		case ev, ok := <-n.sw.events:
			if !ok {
				continue
			}
			n.handleSwarmEvent(ev)

		case res, ok := <-n.dhtResults:
			if !ok {
				continue
			}
			n.handleDHTResult(res)
		}
	}
}

// handleNodeEvent processes arm 1 of the event loop: an internal event
// from the Miner's channel.
func (n *Node) handleNodeEvent(ctx context.Context, ev events.NodeEvent) {
	switch ev.Type {
	case events.NodeEventBlockMined:
		n.adoptLocalMine(ctx, ev.Chain)
	default:
		log.Printf("[node] ignoring internal event %q", ev.Type)
	}
}

// adoptLocalMine validates the freshly mined chain against whatever is
// currently on disk — which may have moved on via a gossip adoption while
// the Miner was working — persists it only if it wins choose_chain, and
// publishes it on the gossip topic. This is the only path by which a
// locally mined block reaches disk — the Miner never writes the file.
func (n *Node) adoptLocalMine(ctx context.Context, chainBytes []byte) {
	chain, err := core.DecodeChain(chainBytes)
	if err != nil {
		log.Printf("[node] mined chain failed to decode: %v", err)
		return
	}
	if err := n.store.ValidateChain(chain); err != nil {
		log.Printf("[node] mined chain failed validation: %v", err)
		return
	}

	local, err := n.store.ReadAll()
	if err != nil {
		log.Printf("[node] read local chain: %v", err)
		return
	}
	localBytes := core.EncodeChain(local)
	winner, err := n.store.ChooseChain(localBytes, chainBytes)
	if err != nil {
		log.Printf("[node] choose_chain: %v", err)
		return
	}
	if string(winner) != string(chainBytes) {
		log.Printf("[node] mined block superseded by a longer chain already on disk, discarding")
		return
	}

	if err := n.store.WriteAll(chain); err != nil {
		log.Printf("[node] write mined chain: %v", err)
		return
	}
	n.idx.RecordMined(len(chain))
	n.emitter.Emit(events.Event{Type: events.EventBlockMined, Data: map[string]any{"height": len(chain) - 1}})

	if err := n.sw.Publish(ctx, chainBytes); err != nil {
		log.Printf("[node] publish mined chain: %v", err)
	}
}

// handleConsoleLine processes arm 2: a line from standard input.
func (n *Node) handleConsoleLine(ctx context.Context, line string) {
	cmd := parseCommand(line)
	switch cmd.kind {
	case cmdMine:
		// Mining is CPU-bound and must not stall the event loop, so it runs
		// on its own goroutine; the result reaches Run via minerIn, the same
		// internal channel a standalone Miner task would use.
		go func() {
			if err := n.miner.MineAndPublish(cmd.value, func(ev events.NodeEvent) {
				n.minerIn <- ev
			}); err != nil {
				log.Printf("[node] mining failed: %v", err)
			}
		}()

	case cmdGet:
		runDHTQuery(ctx, n.dhtResults, dhtQueryGet, []byte(cmd.key), func(ctx context.Context) ([]byte, []peer.AddrInfo, error) {
			v, err := n.sw.dht.Get(ctx, []byte(cmd.key))
			return v, nil, err
		})

	case cmdPut:
		key, value := []byte(cmd.key), []byte(cmd.value)
		runDHTQuery(ctx, n.dhtResults, dhtQueryPut, key, func(ctx context.Context) ([]byte, []peer.AddrInfo, error) {
			return nil, nil, n.sw.dht.Put(ctx, key, value)
		})

	case cmdPutProvider:
		key := []byte(cmd.key)
		runDHTQuery(ctx, n.dhtResults, dhtQueryPutProvider, key, func(ctx context.Context) ([]byte, []peer.AddrInfo, error) {
			return nil, nil, n.sw.dht.PutProvider(ctx, key)
		})

	case cmdLsPeers:
		n.printPeerTable()
		if cmd.key != "" {
			key := []byte(cmd.key)
			runDHTQuery(ctx, n.dhtResults, dhtQueryGetProviders, key, func(ctx context.Context) ([]byte, []peer.AddrInfo, error) {
				providers, err := n.sw.dht.GetProviders(ctx, key)
				return nil, providers, err
			})
		}

	case cmdLsBlocks:
		n.printChain()

	case cmdChat:
		if err := n.sw.Publish(ctx, []byte(cmd.raw)); err != nil {
			log.Printf("[node] publish chat line: %v", err)
		}
	}
}

func (n *Node) printPeerTable() {
	fmt.Println("gossip peers:")
	for _, p := range n.sw.host.Network().Peers() {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println("dht routing table:")
	for _, p := range n.sw.dht.RoutingTable() {
		fmt.Printf("  %s\n", p)
	}
}

func (n *Node) printChain() {
	chain, err := n.store.ReadAll()
	if err != nil {
		log.Printf("[node] ls_blocks: %v", err)
		return
	}
	for _, b := range chain {
		fmt.Printf("#%d %s <- %s  %q\n", b.ID, b.Hash, b.PreviousHash, b.Data)
	}
}

// handleGossipMessage processes arm 3a: a message received on the gossip
// topic. The payload is interpreted as a serialized chain first; only if
// it fails to decode is it treated as free-form chat text. Both
// interpretations share one topic by design — see SPEC_FULL.md §4.4.
func (n *Node) handleGossipMessage(msg gossipMsg) {
	if msg.from == n.id {
		return // gossipsub already filters self-published messages, but be defensive
	}
	chain, err := core.DecodeChain(msg.data)
	if err != nil {
		fmt.Printf("\n%s: %s\n", ShortID(msg.from), string(msg.data))
		return
	}
	if err := n.store.ValidateChain(chain); err != nil {
		log.Printf("[node] remote chain from %s invalid: %v", ShortID(msg.from), err)
		n.idx.RecordRejected()
		n.emitter.Emit(events.Event{Type: events.EventChainRejected, Data: map[string]any{"peer": msg.from.String()}})
		return
	}

	local, err := n.store.ReadAll()
	if err != nil {
		log.Printf("[node] read local chain: %v", err)
		return
	}
	localBytes := core.EncodeChain(local)
	winner, err := n.store.ChooseChain(localBytes, msg.data)
	if err != nil {
		log.Printf("[node] choose_chain: %v", err)
		return
	}
	if string(winner) == string(localBytes) {
		return // local wins, no-op
	}
	if err := n.store.WriteAll(chain); err != nil {
		log.Printf("[node] adopt remote chain: %v", err)
		return
	}
	n.idx.RecordAdopted(len(chain), msg.from.String())
	n.emitter.Emit(events.Event{Type: events.EventChainAdopted, Data: map[string]any{"peer": msg.from.String(), "height": len(chain) - 1}})
	log.Printf("[node] adopted longer chain (len %d) from %s", len(chain), ShortID(msg.from))
}

// handleDiscovery processes arm 3d: a peer found by LAN mDNS discovery.
// Peer expiry is not signaled here — go-libp2p's mDNS only calls
// HandlePeerFound — it is inferred from connection-level disconnects,
// handled in handleSwarmEvent below.
func (n *Node) handleDiscovery(ctx context.Context, ev discoveryEvent) {
	if err := n.sw.host.Connect(ctx, ev.info); err != nil {
		log.Printf("[node] connect to discovered peer %s: %v", ev.info.ID, err)
		return
	}
	log.Printf("[node] mdns discovered peer: %s", ev.info.ID)
	n.idx.RecordPeerDiscovered(ev.info.ID.String())
	n.emitter.Emit(events.Event{Type: events.EventPeerDiscovered, Data: map[string]any{"peer": ev.info.ID.String()}})
}

// handleSwarmEvent processes arms 3b/3c: low-level transport events,
// including disconnects, which the Node treats as peer expiry.
func (n *Node) handleSwarmEvent(ev swarmEvent) {
	switch ev.kind {
	case swarmEventNewListenAddr:
		log.Printf("[node] new listen address: %s", ev.addr)
	case swarmEventDialerConnected:
		log.Printf("[node] connection established (dialer) to %s", ev.peer)
	case swarmEventDisconnected:
		log.Printf("[node] peer disconnected: %s", ev.peer)
		n.idx.RecordPeerExpired()
		n.emitter.Emit(events.Event{Type: events.EventPeerExpired, Data: map[string]any{"peer": ev.peer.String()}})
	}
}

// handleDHTResult processes arm 3e: a completed DHT query.
func (n *Node) handleDHTResult(res dhtQueryResult) {
	if res.err != nil {
		fmt.Printf("%s(%q) error: %v\n", res.kind, res.key, res.err)
		return
	}
	switch res.kind {
	case dhtQueryGet:
		fmt.Printf("get_record(%q) = %q\n", res.key, res.value)
	case dhtQueryPut:
		fmt.Printf("put_record(%q) ok\n", res.key)
	case dhtQueryPutProvider:
		fmt.Printf("start_providing(%q) ok\n", res.key)
	case dhtQueryGetProviders:
		fmt.Printf("get_providers(%q) = %v\n", res.key, res.providers)
	}
}

// stdinLines streams lines from standard input onto a channel, closing it
// when stdin is exhausted or ctx is canceled.
func stdinLines(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// gossipMsg pairs a received gossip payload with its source peer.
type gossipMsg struct {
	from peer.ID
	data []byte
}

// gossipMessages streams incoming topic messages onto a channel.
func gossipMessages(ctx context.Context, sub *pubsub.Subscription) <-chan gossipMsg {
	out := make(chan gossipMsg)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[node] gossip subscription error: %v", err)
				}
				return
			}
			select {
			case out <- gossipMsg{from: msg.GetFrom(), data: msg.GetData()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
