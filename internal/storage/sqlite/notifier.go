package sqlite

import (
	"sync"

	"github.com/jeewonyang/TCSlotScheduler/internal/storage"
)

// notifier is the process-scoped change feed for the store: a registry of
// payloadless listeners fired after every successful mutation, the
// store's own included. Duplicate fires are expected; listeners must
// treat a redundant refresh as a no-op.
type notifier struct {
	mu        sync.Mutex
	listeners map[int]func()
	next      int
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[int]func())}
}

func (n *notifier) subscribe(onChange func()) storage.Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.listeners[id] = onChange
	return &subscription{notifier: n, id: id}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type subscription struct {
	notifier *notifier
	id       int
	once     sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.notifier.mu.Lock()
		delete(s.notifier.listeners, s.id)
		s.notifier.mu.Unlock()
	})
}
