package model

import "fmt"

// Role tags the sender of a conversation message.
type Role string

const (
	RoleUser       Role = "user"
	RoleMentor     Role = "mentor"
	RoleStrategist Role = "strategist"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMentor, RoleStrategist:
		return true
	}
	return false
}

// Message is one entry of an append-only chat history.
type Message struct {
	Sender Role   `json:"sender"`
	Text   string `json:"text"`
}

// ValidateHistory checks that every message has a known sender and, when
// assistant is not empty, that no message uses another assistant role.
func ValidateHistory(messages []Message, assistant Role) error {
	for i, m := range messages {
		if !m.Sender.Valid() {
			return fmt.Errorf("messages[%d]: unknown sender %q", i, m.Sender)
		}
		if assistant != "" && m.Sender != RoleUser && m.Sender != assistant {
			return fmt.Errorf("messages[%d]: sender %q not allowed in a %s conversation", i, m.Sender, assistant)
		}
	}
	return nil
}
