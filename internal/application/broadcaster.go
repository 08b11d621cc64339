package application

import (
	"sync"

	"github.com/ericfisherdev/credkeeper/internal/domain/model"
)

// ReadinessBroadcaster publishes the settled readiness value and fans out
// rotation events. Listeners run synchronously on the publishing goroutine
// in registration order. Update listeners may call the read API, including
// GetPasswordDigest, but must not call UpdatePassword: the rotation that
// delivers the event waits for its listeners before the next one can
// deliver.
type ReadinessBroadcaster struct {
	mu         sync.Mutex
	readyCh    chan struct{}
	settled    bool
	readyEvent model.ReadyEvent
	onReady    []func(model.ReadyEvent)
	onUpdated  map[uint64]func(model.UpdatedEvent)
	order      []uint64
	nextID     uint64
}

// NewReadinessBroadcaster creates an unsettled broadcaster.
func NewReadinessBroadcaster() *ReadinessBroadcaster {
	return &ReadinessBroadcaster{
		readyCh:   make(chan struct{}),
		onUpdated: make(map[uint64]func(model.UpdatedEvent)),
	}
}

// Ready returns a channel that is closed once readiness has settled.
func (b *ReadinessBroadcaster) Ready() <-chan struct{} {
	return b.readyCh
}

// ReadyEvent returns the settled event and whether readiness has settled.
func (b *ReadinessBroadcaster) ReadyEvent() (model.ReadyEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readyEvent, b.settled
}

// OnReady registers fn for the ready event. If readiness has already
// settled, fn is invoked immediately with the settled event.
func (b *ReadinessBroadcaster) OnReady(fn func(model.ReadyEvent)) {
	b.mu.Lock()
	if b.settled {
		ev := b.readyEvent
		b.mu.Unlock()
		fn(ev)
		return
	}
	b.onReady = append(b.onReady, fn)
	b.mu.Unlock()
}

// OnUpdated registers fn for every successful rotation and returns a
// function that removes the registration.
func (b *ReadinessBroadcaster) OnUpdated(fn func(model.UpdatedEvent)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.onUpdated[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.onUpdated, id)
	}
}

// publishReady settles readiness and notifies ready listeners. It reports
// false, without notifying anyone, if readiness had already settled.
func (b *ReadinessBroadcaster) publishReady(ev model.ReadyEvent) bool {
	b.mu.Lock()
	if b.settled {
		b.mu.Unlock()
		return false
	}
	b.settled = true
	b.readyEvent = ev
	listeners := b.onReady
	b.onReady = nil
	close(b.readyCh)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	return true
}

// publishUpdated delivers ev to every update listener.
func (b *ReadinessBroadcaster) publishUpdated(ev model.UpdatedEvent) {
	b.mu.Lock()
	listeners := make([]func(model.UpdatedEvent), 0, len(b.onUpdated))
	live := b.order[:0]
	for _, id := range b.order {
		if fn, ok := b.onUpdated[id]; ok {
			listeners = append(listeners, fn)
			live = append(live, id)
		}
	}
	b.order = live
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
