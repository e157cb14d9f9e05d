package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reviewcall/internal/domain/session"
	"reviewcall/internal/platform/backend"
	"reviewcall/internal/platform/jobs"
	"reviewcall/internal/platform/metrics"
)

// ManagerParams carries the shared dependencies every session is wired with.
type ManagerParams struct {
	Backend       backend.API
	Store         session.StoreAPI
	Queue         *jobs.Queue
	Metrics       *metrics.Collector
	AssistantName string
	Greeting      string
	Competencies  []string
	CacheTTL      time.Duration
	Silence       SilenceThresholds
	EndCallDelay  time.Duration
}

// Session bundles one call's engine with its cache and emission buffer.
type Session struct {
	ID      string
	Engine  *Engine
	Cache   *session.Cache
	Emitter *CollectingEmitter
}

// Manager owns the live sessions. One engine per session id; lookups and
// lifecycle are guarded by the manager's lock, event handling by each
// engine's own.
type Manager struct {
	params ManagerParams

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(params ManagerParams) *Manager {
	return &Manager{
		params:   params,
		sessions: make(map[string]*Session),
	}
}

// StartParams identifies the participants of a new session.
type StartParams struct {
	SessionID    string
	EmployeeID   string
	EmployeeName string
	ManagerID    string
	ManagerName  string
	View         string
}

// Start wires and registers a new session. Starting an id that is already
// live returns the existing session so webhook retries stay harmless.
func (m *Manager) Start(params StartParams) (*Session, error) {
	if params.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if params.EmployeeID == "" || params.EmployeeName == "" {
		return nil, fmt.Errorf("employee identity is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[params.SessionID]; ok {
		return existing, nil
	}

	emitter := NewCollectingEmitter()
	cache := session.NewCache(session.Params{
		SessionID:    params.SessionID,
		EmployeeID:   params.EmployeeID,
		EmployeeName: params.EmployeeName,
		ManagerID:    params.ManagerID,
		ManagerName:  params.ManagerName,
		View:         params.View,
		Competencies: m.params.Competencies,
		Backend:      m.params.Backend,
		Store:        m.params.Store,
		Metrics:      m.params.Metrics,
		TTL:          m.params.CacheTTL,
	})
	dispatcher := NewDispatcher(cache, m.params.Backend, m.params.Queue, emitter, m.params.Metrics, func() string {
		if id := cache.CachedRecordID(); id != "" {
			return id
		}
		return params.SessionID
	})
	monitor := NewSilenceMonitor(emitter, m.params.Metrics, m.params.Silence, dispatcher.Busy)
	engine := NewEngine(EngineParams{
		SessionID:   params.SessionID,
		Greeting:    m.params.Greeting,
		Attribution: NewAttribution(m.params.AssistantName, params.EmployeeName, params.ManagerName),
		Dispatcher:  dispatcher,
		Monitor:     monitor,
		Emitter:     emitter,
		Cache:       cache,
		Store:       m.params.Store,
		Metrics:     m.params.Metrics,
	})

	sess := &Session{ID: params.SessionID, Engine: engine, Cache: cache, Emitter: emitter}
	emitter.OnEndCall(func() { m.scheduleRetire(params.SessionID) })
	m.sessions[params.SessionID] = sess
	return sess, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// End asks the platform to hang up. Retirement is scheduled by the
// emitter's end-call hook, so the end tool and the silence monitor retire
// sessions the same way.
func (m *Manager) End(sessionID string) bool {
	sess, ok := m.Get(sessionID)
	if !ok {
		return false
	}
	sess.Emitter.RequestEndCall()
	return true
}

// scheduleRetire delays teardown by the grace period so the closing words
// and the platform's call-end event still find the session.
func (m *Manager) scheduleRetire(sessionID string) {
	delay := m.params.EndCallDelay
	if delay <= 0 {
		delay = time.Second
	}
	time.AfterFunc(delay, func() { m.retire(sessionID) })
}

func (m *Manager) retire(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if sess.Engine.Active() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sess.Engine.HandleEvent(ctx, Event{Type: EventCallEnd})
	}
	sess.Cache.Close()
	slog.Info("session retired", "session", sessionID)
}

// Shutdown retires every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.retire(id)
	}
}
