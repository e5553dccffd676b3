package channel

import (
	"encoding/json"
	"sync"
)

type inbound struct {
	event string
	data  json.RawMessage
}

// inbox delivers one connection's server events on its own goroutine, in
// arrival order. The read loop only enqueues, so it keeps reading acks while
// a listener waits on an Emit of its own.
type inbox struct {
	deliver func(event string, data json.RawMessage)
	wake    chan struct{}
	done    chan struct{}
	queue   []inbound
	mu      sync.Mutex
	closed  bool
}

func newInbox(deliver func(event string, data json.RawMessage)) *inbox {
	in := &inbox{
		deliver: deliver,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go in.run()
	return in
}

// push queues an event. Events pushed after close are dropped.
func (in *inbox) push(event string, data json.RawMessage) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.queue = append(in.queue, inbound{event: event, data: data})
	in.mu.Unlock()
	in.signal()
}

// close stops intake. Events already queued are still delivered.
func (in *inbox) close() {
	in.mu.Lock()
	in.closed = true
	in.mu.Unlock()
	in.signal()
}

// drained is closed once close was called and the queue is empty.
func (in *inbox) drained() <-chan struct{} {
	return in.done
}

func (in *inbox) signal() {
	select {
	case in.wake <- struct{}{}:
	default:
	}
}

func (in *inbox) run() {
	defer close(in.done)
	for {
		in.mu.Lock()
		if len(in.queue) == 0 {
			closed := in.closed
			in.mu.Unlock()
			if closed {
				return
			}
			<-in.wake
			continue
		}
		next := in.queue[0]
		in.queue[0] = inbound{}
		in.queue = in.queue[1:]
		in.mu.Unlock()

		in.deliver(next.event, next.data)
	}
}
