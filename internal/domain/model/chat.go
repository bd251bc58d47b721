//revive:disable-next-line:var-naming // matches the backend resource vocabulary
package model

import "time"

// ChatRequest is the body of the chat endpoint.
type ChatRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Answer      string `json:"answer"`
	SessionID   string `json:"session_id,omitempty"`
	ActiveRoute string `json:"active_route,omitempty"`
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry of a client's transcript.
type ChatMessage struct {
	ID          string
	Sender      Sender
	Content     string
	ActiveRoute string
	IsError     bool
	At          time.Time
}

// AdminStats is the dashboard summary.
type AdminStats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalRoles       int `json:"totalRoles"`
	TotalKBs         int `json:"totalKBs"`
	TotalPermissions int `json:"totalPermissions"`
}
