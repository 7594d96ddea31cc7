package models

// Role identifies who authored a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one rendered (role, text) pair of a prompt sequence.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
