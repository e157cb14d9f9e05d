package call

import "sync"

// Commands relayed to the voice platform in the webhook response.
const (
	CommandEndCall = "end-call"
)

// Emission is everything accumulated since the last webhook response.
type Emission struct {
	ToolOutputs []ToolOutput  `json:"toolOutputs,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Notices     []Notice      `json:"notices,omitempty"`
	Commands    []string      `json:"commands,omitempty"`
}

// CollectingEmitter buffers emissions between webhook deliveries. The voice
// platform has no push channel from this service, so messages produced
// outside a request (silence nudges, background failure notices) wait in the
// buffer until the next event delivery drains them.
type CollectingEmitter struct {
	mu           sync.Mutex
	pending      Emission
	endRequested bool
	onEndCall    func()
}

func NewCollectingEmitter() *CollectingEmitter {
	return &CollectingEmitter{}
}

// OnEndCall registers a hook invoked once, on the first end-call request,
// whichever path raises it (end tool, silence escalation, or the end
// endpoint). The manager uses it to schedule the session's retirement.
func (e *CollectingEmitter) OnEndCall(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEndCall = fn
}

func (e *CollectingEmitter) EmitToolOutput(out ToolOutput) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending.ToolOutputs = append(e.pending.ToolOutputs, out)
}

func (e *CollectingEmitter) EmitMessage(msg ChatMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending.Messages = append(e.pending.Messages, msg)
}

func (e *CollectingEmitter) Notify(level, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending.Notices = append(e.pending.Notices, Notice{Level: level, Text: text})
}

func (e *CollectingEmitter) RequestEndCall() {
	e.mu.Lock()
	if e.endRequested {
		e.mu.Unlock()
		return
	}
	e.endRequested = true
	e.pending.Commands = append(e.pending.Commands, CommandEndCall)
	fn := e.onEndCall
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Drain returns the buffered emissions and clears the buffer.
func (e *CollectingEmitter) Drain() Emission {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.pending
	e.pending = Emission{}
	return out
}
