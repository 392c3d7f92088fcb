package network

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
	dsleveldb "github.com/ipfs/go-ds-leveldb"
	record "github.com/libp2p/go-libp2p-record"
	mh "github.com/multiformats/go-multihash"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
)

// dhtNamespace is the record-key namespace this node recognizes.
const dhtNamespace = "tolnode"

// acceptAllValidator accepts any record under dhtNamespace: keys and
// values are opaque byte strings per the spec, so there is no signature
// scheme or format to check beyond the namespace itself.
type acceptAllValidator struct{}

func (acceptAllValidator) Validate(key string, value []byte) error { return nil }

func (acceptAllValidator) Select(key string, values [][]byte) (int, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("tolnode: no values to select from")
	}
	return 0, nil
}

// newDHT constructs a Kademlia DHT over h, backed by a LevelDB datastore at
// dataDir so routing records and provider entries survive a restart. Per
// SPEC_FULL.md's resolution of the persistence Open Question, only the
// records/providers persist — the routing table itself is rebuilt from
// scratch on every restart via mDNS and bootstrap.
func newDHT(ctx context.Context, h host.Host, dataDir string) (*dht.IpfsDHT, error) {
	store, err := dsleveldb.NewDatastore(dataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("open dht datastore at %s: %w", dataDir, err)
	}
	kad, err := dht.New(ctx, h,
		dht.Mode(dht.ModeServer),
		dht.Datastore(store),
		dht.Validator(record.NamespacedValidator{
			dhtNamespace: acceptAllValidator{},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create dht: %w", err)
	}
	return kad, nil
}

func dhtKey(key []byte) string {
	return "/" + dhtNamespace + "/" + string(key)
}

// providerCID derives a content ID for key so it can be used with the
// DHT's provider-record API, which is keyed by CID rather than raw bytes.
func providerCID(key []byte) (cid.Cid, error) {
	hash, err := mh.Sum(key, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, hash), nil
}

// DHT wraps go-libp2p-kad-dht with the Quorum::One semantics the console
// commands in SPEC_FULL.md §6 need: get, put, get_providers, put_provider,
// all keyed by opaque byte strings.
type DHT struct {
	kad *dht.IpfsDHT
}

func newDHTWrapper(kad *dht.IpfsDHT) *DHT { return &DHT{kad: kad} }

// Get starts a get_record query and returns the stored value.
func (d *DHT) Get(ctx context.Context, key []byte) ([]byte, error) {
	return d.kad.GetValue(ctx, dhtKey(key), dht.Quorum(1))
}

// Put stores a record locally and publishes it to the DHT.
func (d *DHT) Put(ctx context.Context, key, value []byte) error {
	return d.kad.PutValue(ctx, dhtKey(key), value, dht.Quorum(1))
}

// PutProvider declares this node as a provider for key.
func (d *DHT) PutProvider(ctx context.Context, key []byte) error {
	id, err := providerCID(key)
	if err != nil {
		return err
	}
	return d.kad.Provide(ctx, id, true)
}

// GetProviders issues a get_providers query for key.
func (d *DHT) GetProviders(ctx context.Context, key []byte) ([]peer.AddrInfo, error) {
	id, err := providerCID(key)
	if err != nil {
		return nil, err
	}
	var providers []peer.AddrInfo
	for p := range d.kad.FindProvidersAsync(ctx, id, 20) {
		providers = append(providers, p)
	}
	return providers, nil
}

// RoutingTable exposes the peer IDs currently in the DHT's routing table,
// used by ls_peers.
func (d *DHT) RoutingTable() []peer.ID {
	return d.kad.RoutingTable().ListPeers()
}
