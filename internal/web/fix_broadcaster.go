package web

import (
	"context"
	"sync"
	"time"

	"nmeafix/internal/gps"
)

// FixBroadcaster fans fix reports out to stream subscribers. It keeps the
// most recent value so new subscribers get an immediate sample.
type FixBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan gps.Fix
	nextID   int
	last     gps.Fix
	haveLast bool
}

func NewFixBroadcaster() *FixBroadcaster {
	return &FixBroadcaster{subs: make(map[int]chan gps.Fix)}
}

func (b *FixBroadcaster) Subscribe(buffer int) (int, <-chan gps.Fix) {
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan gps.Fix, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.haveLast {
		ch <- b.last
	}
	return id, ch
}

func (b *FixBroadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of open subscriptions.
func (b *FixBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers fix to every subscriber. Slow subscribers miss samples.
func (b *FixBroadcaster) Publish(fix gps.Fix) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = fix
	b.haveLast = true
	for _, ch := range b.subs {
		select {
		case ch <- fix:
		default:
		}
	}
}

// Run publishes the current fix every interval, once per distinct fix time,
// until ctx is done.
func (b *FixBroadcaster) Run(ctx context.Context, interval time.Duration, current func() gps.Fix) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		fix := current()
		if fix.Time == "" || fix.Time == last {
			continue
		}
		last = fix.Time
		b.Publish(fix)
	}
}
