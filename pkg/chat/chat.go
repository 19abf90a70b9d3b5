package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Dungeon master
	ChatRoleSystem = "system"    // Persona and instructions
)

// ChatMessage represents a single message sent to a generation backend.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// MessageRole identifies who wrote a line in the game's message log.
type MessageRole string

const (
	RolePlayer MessageRole = "player"
	RoleDM     MessageRole = "dm"
	RoleSystem MessageRole = "system"
)

// MaxMessageLength is the longest player message accepted into the log.
const MaxMessageLength = 1000

// maxSpeakerLength bounds what is treated as an existing "Speaker:" prefix.
const maxSpeakerLength = 50

// Message is one persisted line of a game's chat log.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	GameID    uuid.UUID   `json:"game_id"`
	PlayerID  string      `json:"player_id,omitempty"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Type      string      `json:"type,omitempty"` // response type for dm lines
	CreatedAt time.Time   `json:"created_at"`
}

// NewMessage creates a log line with a fresh ID.
func NewMessage(gameID uuid.UUID, role MessageRole, content string, now time.Time) *Message {
	return &Message{
		ID:        uuid.New(),
		GameID:    gameID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

// ValidateContent checks a player message before it is logged.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if n := utf8.RuneCountInString(content); n > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters (got %d)", MaxMessageLength, n)
	}
	return nil
}

// FormatWithSpeaker prefixes message with "speaker: " unless it already
// starts with a short "Name:" prefix.
func FormatWithSpeaker(message, speaker string) string {
	if idx := strings.Index(message, ": "); idx > 0 && idx <= maxSpeakerLength {
		return message
	}
	return speaker + ": " + message
}
