package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/royale/internal/game"
	"github.com/redis/go-redis/v9"
)

// EventMirror republishes game events on a Redis pub/sub channel so other
// processes can follow matches. Publishing never blocks the caller; events
// are dropped when the buffer is full.
type EventMirror struct {
	rdb     *redis.Client
	channel string
	events  chan []byte
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewEventMirror starts the mirror's publish loop. Returns nil if rdb is nil.
func NewEventMirror(rdb *redis.Client, channel string) *EventMirror {
	if rdb == nil || channel == "" {
		return nil
	}
	m := &EventMirror{
		rdb:     rdb,
		channel: channel,
		events:  make(chan []byte, 1024),
		done:    make(chan struct{}),
	}
	go m.run()
	log.Printf("[REDIS] Mirroring game events to channel %s", channel)
	return m
}

func (m *EventMirror) Publish(ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[REDIS] Error marshaling event %s: %v", ev.Kind(), err)
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.events <- data:
	default:
		log.Printf("[REDIS] Event mirror buffer full, dropping %s", ev.Kind())
	}
}

func (m *EventMirror) run() {
	defer close(m.done)
	for data := range m.events {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := m.rdb.Publish(ctx, m.channel, data).Err(); err != nil {
			log.Printf("[REDIS] Publish to %s failed: %v", m.channel, err)
		}
		cancel()
	}
}

// Close flushes buffered events and stops the publish loop. Later Publish
// calls are ignored.
func (m *EventMirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.events)
	m.mu.Unlock()
	<-m.done
}
