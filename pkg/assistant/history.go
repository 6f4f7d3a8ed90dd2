package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// History stores the most recent messages of each conversation in sqlite
// using GORM with raw SQL queries.
type History struct {
	db      *gorm.DB
	mu      sync.RWMutex
	maxSize int
}

func NewHistory(dbPath string, maxSize int) (*History, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schemaSQL := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
	`
	if err := db.Exec(schemaSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 10
	}
	return &History{db: db, maxSize: maxSize}, nil
}

func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add appends msg to the conversation and drops everything but the newest
// maxSize messages.
func (h *History) Add(ctx context.Context, conversationID string, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsertConversation := `
			INSERT INTO conversations (id, created_at, updated_at)
			VALUES (?, datetime('now'), datetime('now'))
			ON CONFLICT(id) DO UPDATE SET updated_at = datetime('now')`
		if err := tx.Exec(upsertConversation, conversationID).Error; err != nil {
			return fmt.Errorf("failed to upsert conversation: %w", err)
		}

		insertMessage := `
			INSERT INTO messages (conversation_id, role, content, created_at)
			VALUES (?, ?, ?, datetime('now'))`
		if err := tx.Exec(insertMessage, conversationID, msg.Role, msg.Content).Error; err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		trimMessages := `
			DELETE FROM messages WHERE conversation_id = ? AND id NOT IN (
				SELECT id FROM messages
				WHERE conversation_id = ?
				ORDER BY id DESC
				LIMIT ?
			)`
		if err := tx.Exec(trimMessages, conversationID, conversationID, h.maxSize).Error; err != nil {
			return fmt.Errorf("failed to trim messages: %w", err)
		}
		return nil
	})
}

// Messages returns the stored messages of a conversation, oldest first.
func (h *History) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id ASC`
	rows, err := h.db.WithContext(ctx).Raw(query, conversationID).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var createdAt sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Timestamp = parseTimestamp(createdAt.String)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Context renders the conversation as a block appended to the next prompt.
// It is empty for a new conversation.
func (h *History) Context(ctx context.Context, conversationID string) (string, error) {
	msgs, err := h.Messages(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("\n\n=== Recent Conversation History ===\n")
	for _, msg := range msgs {
		role := "User"
		if msg.Role == RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msg.Content)
	}
	b.WriteString("=== End of History ===\n")
	return b.String(), nil
}

// parseTimestamp accepts both sqlite's datetime() text and the RFC 3339 form
// the driver produces for DATETIME columns.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
