package call

import (
	"sync"
	"time"

	"reviewcall/internal/platform/metrics"
)

// Silence escalation stages.
const (
	StageNudge = "nudge"
	StageOffer = "offer"
	StageEnd   = "end"
)

// SilenceThresholds are measured from the last participant speech.
type SilenceThresholds struct {
	Nudge time.Duration
	Offer time.Duration
	End   time.Duration
}

// SilenceMonitor escalates when nobody has spoken for a while: first a
// gentle nudge, then an offer to wrap up, finally a forced end of the call.
// The clock holds while the dispatcher is busy, since tool execution is a
// legitimate pause. After the end stage fires the monitor stays stopped
// until the next Reset.
type SilenceMonitor struct {
	emitter    Emitter
	metrics    *metrics.Collector
	thresholds SilenceThresholds
	busy       func() bool

	mu       sync.Mutex
	timer    *time.Timer
	stage    string
	active   bool
	terminal bool
}

func NewSilenceMonitor(emitter Emitter, collector *metrics.Collector, thresholds SilenceThresholds, busy func() bool) *SilenceMonitor {
	return &SilenceMonitor{
		emitter:    emitter,
		metrics:    collector,
		thresholds: thresholds,
		busy:       busy,
	}
}

// Reset restarts the escalation ladder from the beginning. Called on session
// start and whenever a participant finishes speaking.
func (m *SilenceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.active = true
	m.terminal = false
	m.stage = StageNudge
	m.timer = time.AfterFunc(m.thresholds.Nudge, m.fire)
}

// Stop cancels any pending escalation without marking the monitor terminal.
func (m *SilenceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.active = false
}

func (m *SilenceMonitor) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *SilenceMonitor) fire() {
	m.mu.Lock()
	if !m.active || m.terminal {
		m.mu.Unlock()
		return
	}
	if m.busy != nil && m.busy() {
		// Tool calls are in flight; check again shortly instead of
		// escalating over a working assistant.
		m.timer = time.AfterFunc(time.Second, m.fire)
		m.mu.Unlock()
		return
	}
	stage := m.stage
	switch stage {
	case StageNudge:
		m.stage = StageOffer
		m.timer = time.AfterFunc(m.thresholds.Offer-m.thresholds.Nudge, m.fire)
	case StageOffer:
		m.stage = StageEnd
		m.timer = time.AfterFunc(m.thresholds.End-m.thresholds.Offer, m.fire)
	case StageEnd:
		m.terminal = true
		m.timer = nil
	}
	m.mu.Unlock()

	m.metrics.SilenceEscalation(stage)
	switch stage {
	case StageNudge:
		m.emitter.EmitMessage(ChatMessage{
			Role:    RoleAssistant,
			Content: "Are you still there? We can pick up wherever you like.",
		})
	case StageOffer:
		m.emitter.EmitMessage(ChatMessage{
			Role:    RoleAssistant,
			Content: "We seem to have gone quiet. Would you like to wrap up the review for now?",
		})
	case StageEnd:
		m.emitter.Notify("info", "The session ended after a long silence.")
		m.emitter.RequestEndCall()
	}
}
