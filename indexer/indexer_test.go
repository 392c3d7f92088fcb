package indexer

import (
	"testing"

	"github.com/tolelom/tolnode/events"
	"github.com/tolelom/tolnode/internal/testutil"
)

func TestIndexerTracksBlockMined(t *testing.T) {
	emitter := events.NewEmitter()
	idx := New(testutil.NewMemDB(), emitter)

	idx.RecordMined(3)
	emitter.Emit(events.Event{Type: events.EventBlockMined, Data: map[string]any{"height": 2}})

	snap := idx.Snapshot()
	if snap.BlocksMined != 1 {
		t.Errorf("BlocksMined = %d, want 1", snap.BlocksMined)
	}
	if snap.LastChainHeight != 2 {
		t.Errorf("LastChainHeight = %d, want 2", snap.LastChainHeight)
	}
}

func TestIndexerTracksAdoptionAndRejection(t *testing.T) {
	idx := New(testutil.NewMemDB(), events.NewEmitter())

	idx.RecordAdopted(4, "peerA")
	idx.RecordRejected()
	idx.RecordRejected()

	snap := idx.Snapshot()
	if snap.ChainsAdopted != 1 {
		t.Errorf("ChainsAdopted = %d, want 1", snap.ChainsAdopted)
	}
	if snap.ChainsRejected != 2 {
		t.Errorf("ChainsRejected = %d, want 2", snap.ChainsRejected)
	}
	if snap.LastAdoptedPeer != "peerA" {
		t.Errorf("LastAdoptedPeer = %q, want peerA", snap.LastAdoptedPeer)
	}
}

func TestIndexerTracksPeers(t *testing.T) {
	idx := New(testutil.NewMemDB(), events.NewEmitter())

	idx.RecordPeerDiscovered("peer1")
	idx.RecordPeerDiscovered("peer1")
	idx.RecordPeerDiscovered("peer2")
	idx.RecordPeerExpired()

	snap := idx.Snapshot()
	if snap.PeersDiscovered["peer1"] != 2 {
		t.Errorf("peer1 sightings = %d, want 2", snap.PeersDiscovered["peer1"])
	}
	if snap.PeersDiscovered["peer2"] != 1 {
		t.Errorf("peer2 sightings = %d, want 1", snap.PeersDiscovered["peer2"])
	}
	if snap.PeersExpired != 1 {
		t.Errorf("PeersExpired = %d, want 1", snap.PeersExpired)
	}
}

func TestIndexerPersistsAcrossRestart(t *testing.T) {
	db := testutil.NewMemDB()
	idx1 := New(db, events.NewEmitter())
	idx1.RecordMined(2)

	idx2 := New(db, events.NewEmitter())
	if snap := idx2.Snapshot(); snap.BlocksMined != 1 {
		t.Errorf("expected stats to survive across a fresh Indexer over the same db, got %+v", snap)
	}
}
