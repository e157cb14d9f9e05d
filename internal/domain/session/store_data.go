package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store mirrors session state into Postgres so a session survives a process
// restart, and archives final transcript lines.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) SaveState(ctx context.Context, sessionID, key string, payload []byte) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO session_state (session_id, state_key, payload, updated_at)
    VALUES ($1, $2, $3, now())
    ON CONFLICT (session_id, state_key)
    DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
  `, sessionID, key, payload)
	return err
}

func (s *Store) LoadState(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.DB.QueryRow(ctx, `
    SELECT payload FROM session_state WHERE session_id = $1 AND state_key = $2
  `, sessionID, key).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) ClearState(ctx context.Context, sessionID string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM session_state WHERE session_id = $1`, sessionID)
	return err
}

func (s *Store) AppendTranscript(ctx context.Context, sessionID, speaker, addressee, content string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO transcript_entries (session_id, speaker, addressee, content)
    VALUES ($1, $2, $3, $4)
  `, sessionID, speaker, addressee, content)
	return err
}

func (s *Store) ListTranscript(ctx context.Context, sessionID string) ([]TranscriptEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, session_id, speaker, addressee, content, spoken_at
    FROM transcript_entries
    WHERE session_id = $1
    ORDER BY id
  `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TranscriptEntry
	for rows.Next() {
		var entry TranscriptEntry
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Speaker, &entry.Addressee, &entry.Content, &entry.SpokenAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
