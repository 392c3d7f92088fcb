package events

// NodeEventType discriminates the closed tagged union carried on the
// internal Miner-to-Node channel. New variants are added only as new
// semantics appear — this is not a general-purpose bus.
type NodeEventType string

const (
	// NodeEventBlockMined carries the full serialized chain (in the same
	// binary format as the chain file) after a successful mine.
	NodeEventBlockMined NodeEventType = "block_mined"
	// NodeEventHeartbeat carries no payload; any variant the event loop
	// does not recognize, including this one, is logged and ignored.
	NodeEventHeartbeat NodeEventType = "heartbeat"
)

// NodeEvent is the message sent from the Miner to the Node event loop over
// the channel returned by NewEventChannel. The Node is the sole consumer
// and the sole mutator of the persisted chain file — the Miner never
// writes it directly.
type NodeEvent struct {
	Type  NodeEventType
	Chain []byte // populated only for NodeEventBlockMined
}

// NewEventChannel returns the two ends of the internal Miner->Node channel.
// The channel is buffered with room for 256 events: a sender does not
// block while fewer than 256 events are pending, and blocks once the
// buffer is full until the Node, the sole consumer, receives one.
func NewEventChannel() (chan<- NodeEvent, <-chan NodeEvent) {
	ch := make(chan NodeEvent, 256)
	return ch, ch
}
