// Package store persists chat sessions and messages in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uday-dev/alderaan/internal/log"
)

// Store provides session and message persistence backed by pgx.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Store. The pool must already be connected.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// CreateSession creates a new session for the given owner and returns it.
func (s *Store) CreateSession(ctx context.Context, ownerID, title string) (*Session, error) {
	const query = `
		INSERT INTO chat_sessions (owner_id, title)
		VALUES ($1, $2)
		RETURNING id, owner_id, title, message_count, created_at, updated_at`

	var sess Session
	err := s.pool.QueryRow(ctx, query, ownerID, title).Scan(
		&sess.ID, &sess.OwnerID, &sess.Title, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("session created", "session_id", sess.ID, "owner_id", ownerID)
	return &sess, nil
}

// Session fetches a single session by ID. Returns ErrNotFound when the
// session does not exist.
func (s *Store) Session(ctx context.Context, id uuid.UUID) (*Session, error) {
	const query = `
		SELECT id, owner_id, title, message_count, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1`

	var sess Session
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.OwnerID, &sess.Title, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	return &sess, nil
}

// Sessions lists the owner's sessions newest first, along with the total
// count for pagination.
func (s *Store) Sessions(ctx context.Context, ownerID string, limit, offset int) ([]Session, int, error) {
	const countQuery = `SELECT COUNT(*) FROM chat_sessions WHERE owner_id = $1`

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting sessions: %w", err)
	}

	const listQuery = `
		SELECT id, owner_id, title, message_count, created_at, updated_at
		FROM chat_sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, listQuery, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0, limit)
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Title, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, total, nil
}

// DeleteSession removes a session and all of its messages. Messages are
// removed by the ON DELETE CASCADE constraint in the same statement, so
// the deletion is atomic. Returns ErrNotFound when no row was deleted.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("session deleted", "session_id", id)
	return nil
}

// Append atomically appends a message to a session, assigning the next
// sequence number and bumping the session's message count and updated_at.
// The session row is locked for the duration of the transaction so
// concurrent appends to the same session serialize and sequence numbers
// never collide.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, kind Kind, content string, audioPath *string) (*Message, error) {
	if !kind.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx,
		`SELECT message_count FROM chat_sessions WHERE id = $1 FOR UPDATE`,
		sessionID,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking session: %w", err)
	}

	const insertQuery = `
		INSERT INTO chat_messages (session_id, kind, content, audio_path, sequence_number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_id, kind, content, audio_path, sequence_number, created_at`

	var msg Message
	err = tx.QueryRow(ctx, insertQuery, sessionID, string(kind), content, audioPath, count+1).Scan(
		&msg.ID, &msg.SessionID, &msg.Kind, &msg.Content, &msg.AudioPath, &msg.SequenceNumber, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE chat_sessions SET message_count = $2, updated_at = now() WHERE id = $1`,
		sessionID, count+1,
	)
	if err != nil {
		return nil, fmt.Errorf("updating session counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}

	return &msg, nil
}

// Messages returns all messages of a session in ascending sequence order.
// Returns ErrNotFound when the session does not exist.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	// Distinguish a missing session from an empty one.
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)`, sessionID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking session: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	const query = `
		SELECT id, session_id, kind, content, audio_path, sequence_number, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY sequence_number ASC`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Kind, &msg.Content, &msg.AudioPath, &msg.SequenceNumber, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}
