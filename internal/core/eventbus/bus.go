package eventbus

import (
	"context"
	"sync"
)

// Event names a published event.
type Event string

const (
	EventChangeSetCreated  Event = "changeset.created"
	EventChangeSetResolved Event = "changeset.resolved"
	EventScanCompleted     Event = "scan.completed"
	EventTaskCreated       Event = "task.created"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers events to subscribers on a single dispatch goroutine.
// Publishing never blocks: when the buffer is full the event is dropped and
// the OnDrop hooks fire. A nil *EventBus accepts and discards every publish.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size. Call Start to begin delivery.
func New(buffer int) *EventBus {
	if buffer < 1 {
		buffer = 1
	}
	return &EventBus{
		ch:   make(chan envelope, buffer),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is cancelled, then delivers whatever is
// still buffered and returns.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		case <-ctx.Done():
			for {
				select {
				case env := <-bus.ch:
					bus.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()

	for _, h := range bus.hooks.onSubscribe.snapshot() {
		h(event)
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]func(any), len(bus.subs[env.event]))
	copy(subs, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) PublishChangeSetCreated(p ChangeSetCreatedPayload) {
	if bus == nil {
		return
	}
	bus.send(EventChangeSetCreated, p)
}

func (bus *EventBus) SubscribeChangeSetCreated(fn func(ChangeSetCreatedPayload)) {
	bus.subscribe(EventChangeSetCreated, func(p any) { fn(p.(ChangeSetCreatedPayload)) })
}

func (bus *EventBus) PublishChangeSetResolved(p ChangeSetResolvedPayload) {
	if bus == nil {
		return
	}
	bus.send(EventChangeSetResolved, p)
}

func (bus *EventBus) SubscribeChangeSetResolved(fn func(ChangeSetResolvedPayload)) {
	bus.subscribe(EventChangeSetResolved, func(p any) { fn(p.(ChangeSetResolvedPayload)) })
}

func (bus *EventBus) PublishScanCompleted(p ScanCompletedPayload) {
	if bus == nil {
		return
	}
	bus.send(EventScanCompleted, p)
}

func (bus *EventBus) SubscribeScanCompleted(fn func(ScanCompletedPayload)) {
	bus.subscribe(EventScanCompleted, func(p any) { fn(p.(ScanCompletedPayload)) })
}

func (bus *EventBus) PublishTaskCreated(p TaskCreatedPayload) {
	if bus == nil {
		return
	}
	bus.send(EventTaskCreated, p)
}

func (bus *EventBus) SubscribeTaskCreated(fn func(TaskCreatedPayload)) {
	bus.subscribe(EventTaskCreated, func(p any) { fn(p.(TaskCreatedPayload)) })
}
