package backend

import "sync"

// notifier fans collection snapshots out to subscribers. Each subscriber
// drains its own single-slot mailbox on a dedicated goroutine: a slow
// consumer only ever sees the latest snapshot (intermediate ones are
// superseded, never queued), which matches the replace-wholesale contract.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]*subscriber
	next int
}

type subscriber struct {
	box  chan []Document
	errs chan error
	done chan struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]*subscriber)}
}

// subscribe registers the callbacks and seeds the mailbox with the initial
// snapshot, so onChange fires once with the current state before any write.
func (n *notifier) subscribe(collection string, initial []Document, onChange func([]Document), onError func(error)) CancelFunc {
	s := &subscriber{
		box:  make(chan []Document, 1),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	s.box <- initial

	n.mu.Lock()
	if n.subs[collection] == nil {
		n.subs[collection] = make(map[int]*subscriber)
	}
	id := n.next
	n.next++
	n.subs[collection][id] = s
	n.mu.Unlock()

	go func() {
		for {
			select {
			case docs := <-s.box:
				onChange(docs)
			case err := <-s.errs:
				onError(err)
			case <-s.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[collection], id)
			n.mu.Unlock()
			close(s.done)
		})
	}
}

// publish hands the snapshot to every subscriber of the collection,
// replacing any snapshot still sitting unread in a mailbox.
func (n *notifier) publish(collection string, docs []Document) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, s := range n.subs[collection] {
		select {
		case s.box <- docs:
		default:
			select {
			case <-s.box:
			default:
			}
			select {
			case s.box <- docs:
			default:
			}
		}
	}
}

// fail delivers a stream error to every subscriber of the collection.
func (n *notifier) fail(collection string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, s := range n.subs[collection] {
		select {
		case s.errs <- err:
		default:
		}
	}
}

// active reports whether the collection has at least one subscriber.
func (n *notifier) active(collection string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[collection]) > 0
}
