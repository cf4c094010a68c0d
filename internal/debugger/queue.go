package debugger

import "sync"

// commandQueue is a FIFO of outbound commands shared between the
// controller (push) and the worker loop (pop).
type commandQueue struct {
	mu    sync.Mutex
	items [][]byte
}

func (q *commandQueue) push(cmd []byte) {
	item := append([]byte(nil), cmd...)

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

func (q *commandQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	return item, true
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *commandQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil

	return n
}
