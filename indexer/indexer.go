// Package indexer maintains secondary, non-authoritative statistics about
// node activity — blocks mined, chains adopted or rejected, peers seen —
// for the read-only RPC inspector. None of this state is consulted by
// consensus; the chain file alone is authoritative.
package indexer

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/tolelom/tolnode/events"
	"github.com/tolelom/tolnode/storage"
)

const statsKey = "idx:stats"

// Stats is the JSON-serializable snapshot persisted to and loaded from db.
type Stats struct {
	BlocksMined     int            `json:"blocks_mined"`
	ChainsAdopted   int            `json:"chains_adopted"`
	ChainsRejected  int            `json:"chains_rejected"`
	PeersDiscovered map[string]int `json:"peers_discovered"` // peer id -> times seen
	PeersExpired    int            `json:"peers_expired"`
	LastAdoptedPeer string         `json:"last_adopted_peer,omitempty"`
	LastChainHeight int            `json:"last_chain_height"`
}

// Indexer subscribes to chain/network events and keeps a running tally,
// flushed to db after every update so it survives a restart.
type Indexer struct {
	mu      sync.Mutex
	db      storage.DB
	emitter *events.Emitter
	stats   Stats
}

// New loads any persisted stats from db, subscribes to the relevant
// events, and returns an Indexer ready to use.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{
		db:      db,
		emitter: emitter,
		stats:   Stats{PeersDiscovered: map[string]int{}},
	}
	idx.load()

	emitter.Subscribe(events.EventBlockMined, idx.onBlockMined)
	emitter.Subscribe(events.EventChainAdopted, idx.onChainAdopted)
	emitter.Subscribe(events.EventChainRejected, idx.onChainRejected)
	emitter.Subscribe(events.EventPeerDiscovered, idx.onPeerDiscovered)
	emitter.Subscribe(events.EventPeerExpired, idx.onPeerExpired)
	return idx
}

// Snapshot returns a copy of the current stats, safe to serialize for an
// RPC response.
func (idx *Indexer) Snapshot() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	cp := idx.stats
	cp.PeersDiscovered = make(map[string]int, len(idx.stats.PeersDiscovered))
	for k, v := range idx.stats.PeersDiscovered {
		cp.PeersDiscovered[k] = v
	}
	return cp
}

// RecordMined updates and persists the local-mine counters directly, ahead
// of the EventBlockMined emission, so the event handler only needs to log.
func (idx *Indexer) RecordMined(chainHeight int) {
	idx.mu.Lock()
	idx.stats.BlocksMined++
	idx.stats.LastChainHeight = chainHeight - 1
	idx.mu.Unlock()
	idx.save()
}

// RecordAdopted updates adoption counters ahead of the EventChainAdopted
// emission.
func (idx *Indexer) RecordAdopted(chainHeight int, peerID string) {
	idx.mu.Lock()
	idx.stats.ChainsAdopted++
	idx.stats.LastChainHeight = chainHeight - 1
	idx.stats.LastAdoptedPeer = peerID
	idx.mu.Unlock()
	idx.save()
}

// RecordRejected updates the rejection counter ahead of the
// EventChainRejected emission.
func (idx *Indexer) RecordRejected() {
	idx.mu.Lock()
	idx.stats.ChainsRejected++
	idx.mu.Unlock()
	idx.save()
}

// RecordPeerDiscovered updates the peer-sightings map ahead of the
// EventPeerDiscovered emission.
func (idx *Indexer) RecordPeerDiscovered(peerID string) {
	idx.mu.Lock()
	idx.stats.PeersDiscovered[peerID]++
	idx.mu.Unlock()
	idx.save()
}

// RecordPeerExpired updates the expiry counter ahead of the
// EventPeerExpired emission.
func (idx *Indexer) RecordPeerExpired() {
	idx.mu.Lock()
	idx.stats.PeersExpired++
	idx.mu.Unlock()
	idx.save()
}

// ---- event handlers: logging only, the counters above already moved ----

func (idx *Indexer) onBlockMined(ev events.Event) {
	log.Printf("[indexer] block mined, height=%v", ev.Data["height"])
}

func (idx *Indexer) onChainAdopted(ev events.Event) {
	log.Printf("[indexer] chain adopted from peer=%v height=%v", ev.Data["peer"], ev.Data["height"])
}

func (idx *Indexer) onChainRejected(ev events.Event) {
	log.Printf("[indexer] chain rejected from peer=%v", ev.Data["peer"])
}

func (idx *Indexer) onPeerDiscovered(ev events.Event) {
	log.Printf("[indexer] peer discovered: %v", ev.Data["peer"])
}

func (idx *Indexer) onPeerExpired(ev events.Event) {
	log.Printf("[indexer] peer expired")
}

// ---- persistence ----

func (idx *Indexer) load() {
	data, err := idx.db.Get([]byte(statsKey))
	if err != nil {
		return // core.ErrNotFound on first run, or any other read error: start fresh
	}
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("[indexer] stats corrupt, starting fresh: %v", err)
		return
	}
	if s.PeersDiscovered == nil {
		s.PeersDiscovered = map[string]int{}
	}
	idx.stats = s
}

func (idx *Indexer) save() {
	idx.mu.Lock()
	data, err := json.Marshal(idx.stats)
	idx.mu.Unlock()
	if err != nil {
		log.Printf("[indexer] marshal stats: %v", err)
		return
	}
	if err := idx.db.Set([]byte(statsKey), data); err != nil {
		log.Printf("[indexer] persist stats: %v", err)
	}
}
