package session

import (
	"context"
	"sync"
	"time"
)

// MemStore keeps session state in maps. Used in tests and when running
// without a database.
type MemStore struct {
	mu          sync.RWMutex
	state       map[string]map[string][]byte
	transcripts map[string][]TranscriptEntry
	nextID      int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		state:       make(map[string]map[string][]byte),
		transcripts: make(map[string][]TranscriptEntry),
	}
}

func (m *MemStore) SaveState(_ context.Context, sessionID, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state[sessionID] == nil {
		m.state[sessionID] = make(map[string][]byte)
	}
	m.state[sessionID][key] = append([]byte(nil), payload...)
	return nil
}

func (m *MemStore) LoadState(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.state[sessionID][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

func (m *MemStore) ClearState(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, sessionID)
	return nil
}

func (m *MemStore) AppendTranscript(_ context.Context, sessionID, speaker, addressee, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.transcripts[sessionID] = append(m.transcripts[sessionID], TranscriptEntry{
		ID:        m.nextID,
		SessionID: sessionID,
		Speaker:   speaker,
		Addressee: addressee,
		Content:   content,
		SpokenAt:  time.Now().UTC(),
	})
	return nil
}

func (m *MemStore) ListTranscript(_ context.Context, sessionID string) ([]TranscriptEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TranscriptEntry(nil), m.transcripts[sessionID]...), nil
}
