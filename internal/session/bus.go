package session

import "sync"

// bus is a bounded, lossy broadcast of one session's log lines to any number
// of concurrent readers (CLI tail, HTTP/WebSocket stream, MCP watcher). A
// slow or absent reader never blocks the process being supervised: once a
// subscriber's buffer fills, its oldest buffered line is discarded to make
// room, so a lagging subscriber skips ahead to the latest lines. Generalizes the scheduler package's channel-per-consumer idiom from
// a single ticking job to fan-out-to-many-subscribers.
type bus struct {
	mu   sync.Mutex
	subs map[int]chan Log
	next int
}

func newBus() *bus {
	return &bus{subs: map[int]chan Log{}}
}

// subscribe returns a channel receiving every log published after this
// call, buffered up to capacity. unsubscribe must be called when the reader
// is done.
func (b *bus) subscribe(capacity int) (ch <-chan Log, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	c := make(chan Log, capacity)
	b.subs[id] = c

	return c, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// publish fans log out to every live subscriber; a subscriber whose buffer
// is full loses its oldest buffered line to make room for this one.
func (b *bus) publish(log Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- log:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- log:
			default:
			}
		}
	}
}

// closeAll closes every subscriber channel, signalling end-of-stream.
func (b *bus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		close(sub)
		delete(b.subs, id)
	}
}
