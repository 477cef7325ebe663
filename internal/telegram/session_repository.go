package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Session keeps per-chat planning state between messages: the requested day
// count, the current slot selections and the last saved menu, if any.
type Session struct {
	ID        int64
	ChatID    int64
	Days      int
	Selection []string // "{day}:{meal}:{recipe_id}" tokens
	MenuID    int64
	UpdatedAt time.Time
}

// SessionRepository provides access to session persistence operations
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves the session for a chat, or nil when the chat has none yet.
func (sr *SessionRepository) Get(ctx context.Context, chatID int64) (*Session, error) {
	row := sr.db.QueryRowContext(ctx,
		`SELECT id, chat_id, days, selection, menu_id, updated_at
		 FROM bot_sessions WHERE chat_id = ?`, chatID)

	var s Session
	var selectionJSON string
	var menuID sql.NullInt64
	if err := row.Scan(&s.ID, &s.ChatID, &s.Days, &selectionJSON, &menuID, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load bot session: %w", err)
	}
	if menuID.Valid {
		s.MenuID = menuID.Int64
	}
	if err := json.Unmarshal([]byte(selectionJSON), &s.Selection); err != nil {
		return nil, fmt.Errorf("failed to decode session selection: %w", err)
	}
	return &s, nil
}

// Save upserts the session for its chat.
func (sr *SessionRepository) Save(ctx context.Context, s *Session) error {
	selectionJSON, err := json.Marshal(s.Selection)
	if err != nil {
		return fmt.Errorf("failed to encode session selection: %w", err)
	}
	var menuID interface{}
	if s.MenuID != 0 {
		menuID = s.MenuID
	}
	_, err = sr.db.ExecContext(ctx,
		`INSERT INTO bot_sessions (chat_id, days, selection, menu_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   days = excluded.days,
		   selection = excluded.selection,
		   menu_id = excluded.menu_id,
		   updated_at = excluded.updated_at`,
		s.ChatID, s.Days, string(selectionJSON), menuID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save bot session: %w", err)
	}
	return nil
}

// Delete removes a chat's session.
func (sr *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	if _, err := sr.db.ExecContext(ctx,
		`DELETE FROM bot_sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete bot session: %w", err)
	}
	return nil
}
