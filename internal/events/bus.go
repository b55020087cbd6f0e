package events

import (
	"sync"
	"sync/atomic"
)

// broadcaster fans events out to live subscribers. Slow subscribers lose
// their oldest buffered event instead of blocking the publisher.
type broadcaster struct {
	mu           sync.RWMutex
	subscribers  []*subscriber
	bufferSize   int
	droppedCount int64
	closed       bool
}

type subscriber struct {
	ch    chan LogEvent
	agent string // empty means all agents
}

func newBroadcaster(bufferSize int) *broadcaster {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &broadcaster{bufferSize: bufferSize}
}

func (b *broadcaster) subscribe(agent string) <-chan LogEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan LogEvent, b.bufferSize), agent: agent}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	b.subscribers = append(b.subscribers, sub)
	return sub.ch
}

func (b *broadcaster) unsubscribe(ch <-chan LogEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.subscribers[:0]
	for _, sub := range b.subscribers {
		if sub.ch == ch {
			close(sub.ch)
			continue
		}
		kept = append(kept, sub)
	}
	b.subscribers = kept
}

func (b *broadcaster) publish(e LogEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		if sub.agent != "" && sub.agent != e.Agent {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Buffer full: drop oldest, then retry once.
			select {
			case <-sub.ch:
				atomic.AddInt64(&b.droppedCount, 1)
			default:
			}
			select {
			case sub.ch <- e:
			default:
				atomic.AddInt64(&b.droppedCount, 1)
			}
		}
	}
}

func (b *broadcaster) dropped() int64 {
	return atomic.LoadInt64(&b.droppedCount)
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.subscribers = nil
}
