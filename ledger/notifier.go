package ledger

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultQueueSize is the notifier queue length when none is configured
const DefaultQueueSize = 256

// Subscriber receives delivered events on the notifier's dispatch goroutine
type Subscriber func(Envelope)

// Notifier is an asynchronous Publisher. Published events go into a bounded
// queue drained by a single dispatcher, so subscribers see events in publish
// order. When the queue is full the event is dropped rather than blocking the
// caller.
type Notifier struct {
	queue  chan Envelope
	logger *zap.Logger

	mu     sync.RWMutex
	subs   []Subscriber
	closed bool

	dropped atomic.Uint64
	done    chan struct{}
}

// NewNotifier starts a notifier with a queue of the given size
func NewNotifier(size int, logger *zap.Logger) *Notifier {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		queue:  make(chan Envelope, size),
		logger: logger,
		done:   make(chan struct{}),
	}
	go n.dispatch()
	return n
}

// Subscribe registers fn for every event published after this call
func (n *Notifier) Subscribe(fn Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *Notifier) Publish(evt Event) {
	env := Seal(uuid.New(), evt)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.drop(env, "notifier closed")
		return
	}
	select {
	case n.queue <- env:
	default:
		n.drop(env, "queue full")
	}
}

// Dropped returns the number of events that were never queued
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be delivered
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) drop(env Envelope, reason string) {
	n.dropped.Add(1)
	n.logger.Warn("dropping event",
		zap.String("event", env.Name),
		zap.Uint64("product_id", env.ProductID),
		zap.String("reason", reason))
}

func (n *Notifier) dispatch() {
	defer close(n.done)
	for env := range n.queue {
		n.mu.RLock()
		subs := n.subs
		n.mu.RUnlock()
		for _, fn := range subs {
			n.deliver(fn, env)
		}
	}
}

func (n *Notifier) deliver(fn Subscriber, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("subscriber panicked",
				zap.String("event", env.Name),
				zap.Uint64("product_id", env.ProductID),
				zap.Any("panic", r))
		}
	}()
	fn(env)
}
