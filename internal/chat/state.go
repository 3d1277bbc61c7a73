package chat

// Phase is where the current turn is in its lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseSending       Phase = "sending"
	PhaseStreaming     Phase = "streaming"
	PhaseFinalizing    Phase = "finalizing"
	PhaseReceivingJSON Phase = "receiving_json"
	PhaseDone          Phase = "done"
	PhaseErrored       Phase = "errored"
)

// State is the observable snapshot handed to the presentation layer.
// Error is empty when there is nothing to show.
type State struct {
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"isLoading"`
	Error     string    `json:"error"`
	Phase     Phase     `json:"phase"`
}

// Observer receives a snapshot after every state change. Observers run
// synchronously on the goroutine that made the change; State is the only
// controller method they may call.
type Observer func(State)

// Subscribe registers fn and returns a function that removes it.
func (c *Controller) Subscribe(fn Observer) (cancel func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn

	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.observers, id)
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	return State{
		Messages:  messages,
		IsLoading: c.isLoading,
		Error:     c.errMsg,
		Phase:     c.phase,
	}
}

// update applies fn under the state lock and notifies observers when fn
// reports a change. Snapshots reach observers in the order they were taken.
func (c *Controller) update(fn func() bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	changed := fn()
	var snapshot State
	if changed {
		snapshot = c.snapshotLocked()
	}
	c.mu.Unlock()

	if !changed {
		return
	}
	for _, observer := range c.observers {
		observer(snapshot)
	}
}
