package network

// TopicName is the single well-known gossip topic carrying opaque byte
// payloads: the full serialized chain produced by a miner, or — when a
// payload fails to decode as a chain — free-form chat text. See the design
// note on dual interpretation in the Node event loop.
const TopicName = "gossip"
