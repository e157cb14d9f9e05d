package call

import (
	"context"
	"log/slog"
	"sync"

	"reviewcall/internal/domain/session"
	"reviewcall/internal/platform/metrics"
)

// Engine orchestrates one voice session: it consumes platform events in
// order and feeds them to the attribution tracker, the transcript log, the
// dispatcher and the silence monitor. One engine per session; HandleEvent
// serializes concurrent webhook deliveries, so the collaborators below need
// no locking of their own.
type Engine struct {
	sessionID   string
	greeting    string
	attribution *Attribution
	transcript  *Transcript
	dispatcher  *Dispatcher
	monitor     *SilenceMonitor
	emitter     Emitter
	cache       *session.Cache
	store       session.StoreAPI
	metrics     *metrics.Collector

	mu     sync.Mutex
	active bool
}

type EngineParams struct {
	SessionID   string
	Greeting    string
	Attribution *Attribution
	Dispatcher  *Dispatcher
	Monitor     *SilenceMonitor
	Emitter     Emitter
	Cache       *session.Cache
	Store       session.StoreAPI
	Metrics     *metrics.Collector
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		sessionID:   p.SessionID,
		greeting:    p.Greeting,
		attribution: p.Attribution,
		transcript:  NewTranscript(),
		dispatcher:  p.Dispatcher,
		monitor:     p.Monitor,
		emitter:     p.Emitter,
		cache:       p.Cache,
		store:       p.Store,
		metrics:     p.Metrics,
	}
}

// Active reports whether a call is currently in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Transcript returns a snapshot of the in-memory transcript.
func (e *Engine) Transcript() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transcript.Lines()
}

// HandleEvent processes one event envelope from the voice platform.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case EventCallStart:
		e.onCallStart()
	case EventCallEnd:
		e.onCallEnd(ctx)
	case EventSpeechStart:
		e.monitor.Stop()
	case EventSpeechEnd:
		e.monitor.Reset()
	case EventMessage:
		e.onMessage(ctx, ev)
	case EventError:
		slog.Warn("voice platform error", "session", e.sessionID, "err", ev.Error)
		e.emitter.Notify("error", "The voice connection reported a problem.")
	}
}

func (e *Engine) onCallStart() {
	e.active = true
	e.attribution.Reset()
	e.transcript.Reset()
	e.monitor.Reset()
	e.metrics.SessionStarted()
	if e.greeting != "" {
		e.emitter.EmitMessage(ChatMessage{Role: RoleAssistant, Content: e.greeting})
	}
}

func (e *Engine) onCallEnd(ctx context.Context) {
	if !e.active {
		return
	}
	e.active = false
	e.monitor.Stop()
	e.cache.Clear(ctx)
	e.metrics.SessionEnded()
}

func (e *Engine) onMessage(ctx context.Context, ev Event) {
	switch ev.MessageType {
	case MessageTranscript:
		e.onTranscript(ctx, ev)
	case MessageToolCalls:
		if len(ev.ToolCalls) == 0 {
			return
		}
		e.dispatcher.Dispatch(ctx, ev.ToolCalls)
		e.monitor.Reset()
	}
}

func (e *Engine) onTranscript(ctx context.Context, ev Event) {
	if ev.Transcript == "" {
		return
	}
	var speaker string
	if ev.Role == RoleAssistant {
		speaker = e.attribution.Label(RoleAssistant, "")
	} else {
		speaker = e.attribution.Label(ev.Role, ev.ChannelID)
		e.monitor.Reset()
	}
	final := ev.TranscriptType == TranscriptFinal
	var addressee string
	if ev.Role == RoleAssistant {
		if final {
			addressee = e.attribution.InferAddressee(ev.Transcript)
		} else {
			addressee = e.attribution.Addressee()
		}
	}
	line := e.transcript.Append(speaker, addressee, ev.Transcript, final)
	if !final {
		return
	}
	if err := e.store.AppendTranscript(ctx, e.sessionID, line.Speaker, line.Addressee, line.Content); err != nil {
		slog.Warn("transcript archive failed", "session", e.sessionID, "err", err)
	}
}
