package player

import "sync"

// DefaultMailboxSize bounds the number of undelivered updates per subscriber.
const DefaultMailboxSize = 256

// Update is delivered to subscribers after every state change.
type Update struct {
	Changed  Field
	Snapshot Snapshot
	Err      error // set when Changed has FieldError
}

// Subscription receives engine updates in order.
// The engine never blocks on a subscriber: once the mailbox is full, new
// updates are folded into the most recent undelivered one.
type Subscription struct {
	// C yields updates until the subscription or the engine is closed.
	C <-chan Update

	ch     chan Update
	fields Field
	limit  int

	mu      sync.Mutex
	pending []Update
	notify  chan struct{}
	closed  chan struct{}
	once    sync.Once

	unsubscribe func(*Subscription)
}

func newSubscription(fields Field, limit int, unsubscribe func(*Subscription)) *Subscription {
	if limit <= 0 {
		limit = DefaultMailboxSize
	}
	ch := make(chan Update)
	s := &Subscription{
		C:           ch,
		ch:          ch,
		fields:      fields,
		limit:       limit,
		notify:      make(chan struct{}, 1),
		closed:      make(chan struct{}),
		unsubscribe: unsubscribe,
	}
	go s.pump()
	return s
}

// offer queues an update without blocking.
func (s *Subscription) offer(u Update) {
	if !u.Changed.Has(s.fields) {
		return
	}

	s.mu.Lock()
	if n := len(s.pending); n >= s.limit {
		tail := &s.pending[n-1]
		tail.Changed |= u.Changed
		tail.Snapshot = u.Snapshot
		if u.Err != nil {
			tail.Err = u.Err
		}
	} else {
		s.pending = append(s.pending, u)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.closed:
				return
			}
		}
		next := s.pending[0]
		s.pending[0] = Update{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.ch <- next:
		case <-s.closed:
			return
		}
	}
}

// Close stops delivery and detaches the subscription from the engine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.closed)
		if s.unsubscribe != nil {
			s.unsubscribe(s)
		}
	})
}
