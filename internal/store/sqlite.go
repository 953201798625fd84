// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is a fixed-width RFC3339 variant with zero-padded nanoseconds.
// All timestamps are stored as UTC text in this format, so lexical order in
// SQL comparisons equals chronological order and no field-name-based
// re-parsing is ever needed.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL,
			email      TEXT NOT NULL,
			avatar_url TEXT,
			status     TEXT NOT NULL DEFAULT 'offline',
			created_at TEXT NOT NULL,

			CHECK (status IN ('online', 'offline', 'typing'))
		);

		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

		CREATE TABLE IF NOT EXISTS conversations (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			participants  TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			last_message  TEXT,
			last_activity TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_activity
			ON conversations(last_activity DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			sender_id       TEXT NOT NULL,
			sender_username TEXT NOT NULL,
			content         TEXT NOT NULL,
			message_type    TEXT NOT NULL DEFAULT 'text',
			timestamp       TEXT NOT NULL,
			conversation_id TEXT NOT NULL,

			CHECK (message_type IN ('text', 'ai_response', 'system'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertUser stores a new user record
func (s *SQLiteStore) InsertUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, avatar_url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.AvatarURL,
		user.Status,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, avatar_url, status, created_at
		FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users in creation order
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, avatar_url, status, created_at
		FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUserStatus sets the persisted status for a user
func (s *SQLiteStore) UpdateUserStatus(ctx context.Context, userID, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = ? WHERE id = ?`, status, userID)
	if err != nil {
		return fmt.Errorf("updating user status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertConversation stores a new conversation record
func (s *SQLiteStore) InsertConversation(ctx context.Context, conv *Conversation) error {
	participants, err := json.Marshal(conv.Participants)
	if err != nil {
		return fmt.Errorf("encoding participants: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, name, participants, created_at, last_message, last_activity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID,
		conv.Name,
		string(participants),
		formatTime(conv.CreatedAt),
		conv.LastMessage,
		formatTime(conv.LastActivity),
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, participants, created_at, last_message, last_activity
		FROM conversations WHERE id = ?`, id)

	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns all conversations, most recently active first
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, participants, created_at, last_message, last_activity
		FROM conversations ORDER BY last_activity DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// UpdateConversationSummary sets last_message and last_activity for a
// conversation. The guard keeps last_activity monotonically non-decreasing:
// an update carrying an older timestamp than the stored one is silently
// skipped, which can happen when two submissions race.
func (s *SQLiteStore) UpdateConversationSummary(ctx context.Context, conversationID, preview string, lastActivity time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message = ?, last_activity = ?
		WHERE id = ? AND last_activity <= ?`,
		preview,
		formatTime(lastActivity),
		conversationID,
		formatTime(lastActivity),
	)
	if err != nil {
		return fmt.Errorf("updating conversation summary: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		// Either the conversation is missing or a newer summary is already
		// in place; only the former is an error.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking conversation existence: %w", err)
		}
	}
	return nil
}

// AppendMessage stores a new message record
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, sender_username, content, message_type, timestamp, conversation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.SenderID,
		msg.SenderUsername,
		msg.Content,
		msg.MessageType,
		formatTime(msg.Timestamp),
		msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// ListMessagesByConversation returns a conversation's messages in arrival
// order at the storage layer (insertion order, not timestamp order).
func (s *SQLiteStore) ListMessagesByConversation(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_username, content, message_type, timestamp, conversation_id
		FROM messages WHERE conversation_id = ? ORDER BY rowid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var msg Message
		var ts string
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.SenderUsername,
			&msg.Content, &msg.MessageType, &ts, &msg.ConversationID); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Timestamp, err = parseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("parsing message timestamp: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var user User
	var avatarURL sql.NullString
	var createdAt string

	if err := row.Scan(&user.ID, &user.Username, &user.Email,
		&avatarURL, &user.Status, &createdAt); err != nil {
		return nil, err
	}

	user.AvatarURL = avatarURL.String

	var err error
	user.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &user, nil
}

func scanConversation(row scanner) (*Conversation, error) {
	var conv Conversation
	var participants string
	var lastMessage sql.NullString
	var createdAt, lastActivity string

	if err := row.Scan(&conv.ID, &conv.Name, &participants,
		&createdAt, &lastMessage, &lastActivity); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(participants), &conv.Participants); err != nil {
		return nil, fmt.Errorf("decoding participants: %w", err)
	}
	conv.LastMessage = lastMessage.String

	var err error
	conv.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	conv.LastActivity, err = parseTime(lastActivity)
	if err != nil {
		return nil, fmt.Errorf("parsing last_activity: %w", err)
	}
	return &conv, nil
}
