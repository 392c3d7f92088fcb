// Package events carries node-local notifications: the closed tagged
// union the Miner uses to hand a newly mined chain to the Node event loop,
// and a small pub/sub Emitter the indexer uses to observe chain activity.
package events

import (
	"log"
	"sync"
)

// EventType labels what happened, for the local Emitter pub/sub.
type EventType string

const (
	EventBlockMined     EventType = "block_mined"
	EventChainAdopted   EventType = "chain_adopted"
	EventChainRejected  EventType = "chain_rejected"
	EventPeerDiscovered EventType = "peer_discovered"
	EventPeerExpired    EventType = "peer_expired"
)

// Event carries a typed payload emitted after something of interest
// happens inside the node.
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple local pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt the event loop.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[events] handler panicked for %s: %v", ev.Type, r)
				}
			}()
			h(ev)
		}()
	}
}
