package eventbus

import "sync"

type (
	payloadHook func(Event, any)
	panicHook   func(Event, any, any)
)

// hookList is an append-only list of callbacks that is safe to snapshot
// while other goroutines register more.
type hookList[F any] struct {
	mu  sync.RWMutex
	fns []F
}

func (l *hookList[F]) add(fn F) {
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

func (l *hookList[F]) snapshot() []F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]F, len(l.fns))
	copy(out, l.fns)
	return out
}

type hooks struct {
	onPublish   hookList[payloadHook]
	onDrop      hookList[payloadHook]
	onSubscribe hookList[func(Event)]
	onPanic     hookList[panicHook]
}

// OnPublish registers fn to run after an event is queued for delivery.
func (bus *EventBus) OnPublish(fn func(Event, any)) { bus.hooks.onPublish.add(fn) }

// OnDrop registers fn to run when an event is dropped because the buffer is full.
func (bus *EventBus) OnDrop(fn func(Event, any)) { bus.hooks.onDrop.add(fn) }

// OnSubscribe registers fn to run after a subscriber is added.
func (bus *EventBus) OnSubscribe(fn func(Event)) { bus.hooks.onSubscribe.add(fn) }

// OnPanic registers fn to run when a subscriber panics. A panicking hook is
// swallowed.
func (bus *EventBus) OnPanic(fn func(Event, any, any)) { bus.hooks.onPanic.add(fn) }

func (bus *EventBus) send(event Event, payload any) {
	select {
	case bus.ch <- envelope{event: event, payload: payload}:
		for _, fn := range bus.hooks.onPublish.snapshot() {
			fn(event, payload)
		}
	default:
		for _, fn := range bus.hooks.onDrop.snapshot() {
			fn(event, payload)
		}
	}
}

func (bus *EventBus) runOnPanic(event Event, payload any, recovered any) {
	for _, fn := range bus.hooks.onPanic.snapshot() {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(event, payload, recovered)
		}()
	}
}
