package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types pushed to clients
const (
	EventHabitCompleted      = "habit.completed"
	EventLevelUp             = "user.level_up"
	EventAchievementUnlocked = "achievement.unlocked"
	EventConnected           = "connected"
	EventPong                = "pong"
	EventError               = "error"
)

// Message is the envelope of every frame sent or received
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// NewMessage builds a message with data encoded as JSON
func NewMessage(msgType string, data interface{}) (*Message, error) {
	m := &Message{Type: msgType, At: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		m.Data = raw
	}
	return m, nil
}

func encode(msgType string, data interface{}) ([]byte, error) {
	m, err := NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
