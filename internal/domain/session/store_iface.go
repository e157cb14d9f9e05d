package session

import (
	"context"
	"time"
)

// State keys for the per-session cache mirror. Fixed: a reloaded session
// recovers exactly these two payloads.
const (
	StateKeyRecord  = "review_record"
	StateKeySources = "source_objectives"
)

type TranscriptEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Speaker   string    `json:"speaker"`
	Addressee string    `json:"addressee"`
	Content   string    `json:"content"`
	SpokenAt  time.Time `json:"spokenAt"`
}

type StoreAPI interface {
	SaveState(ctx context.Context, sessionID, key string, payload []byte) error
	LoadState(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	ClearState(ctx context.Context, sessionID string) error
	AppendTranscript(ctx context.Context, sessionID, speaker, addressee, content string) error
	ListTranscript(ctx context.Context, sessionID string) ([]TranscriptEntry, error)
}
