package wsfanout

import "sync"

// interactionBroker delivers an ask_user_response frame to whichever
// tool is waiting on that interaction_id. No currently registered tool
// awaits user input, but the wire frame is part of the protocol, so a
// future interactive tool only needs to call Await to participate.
type interactionBroker struct {
	mu      sync.Mutex
	waiters map[string]chan string
}

func newInteractionBroker() *interactionBroker {
	return &interactionBroker{waiters: make(map[string]chan string)}
}

// Await registers interactionID and returns at once with a channel that
// receives the answer when respond delivers it; a waiter that never gets
// a response stays registered.
func (b *interactionBroker) Await(interactionID string) <-chan string {
	ch := make(chan string, 1)
	b.mu.Lock()
	b.waiters[interactionID] = ch
	b.mu.Unlock()
	return ch
}

func (b *interactionBroker) respond(interactionID, response string) {
	b.mu.Lock()
	ch, ok := b.waiters[interactionID]
	if ok {
		delete(b.waiters, interactionID)
	}
	b.mu.Unlock()
	if ok {
		ch <- response
	}
}
