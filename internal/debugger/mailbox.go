package debugger

import "sync"

// mailbox delivers events in order without ever blocking the producer.
// Pushes land in an unbounded slice; a pump goroutine forwards them to out
// and closes out once the mailbox is closed and drained.
type mailbox struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	notify chan struct{}
	out    chan Event
}

func newMailbox() *mailbox {
	m := &mailbox{
		notify: make(chan struct{}, 1),
		out:    make(chan Event),
	}
	go m.pump()

	return m
}

func (m *mailbox) push(ev Event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, ev)
	m.mu.Unlock()
	m.wake()

	return true
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wake()
}

func (m *mailbox) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) pump() {
	for {
		m.mu.Lock()
		if len(m.items) == 0 {
			closed := m.closed
			m.mu.Unlock()
			if closed {
				close(m.out)
				return
			}
			<-m.notify
			continue
		}
		ev := m.items[0]
		m.items[0] = Event{}
		m.items = m.items[1:]
		m.mu.Unlock()

		m.out <- ev
	}
}
