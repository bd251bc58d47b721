package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/kb-assistant-web/internal/domain/model"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

// DefaultTranscriptLimit bounds the messages kept per client.
const DefaultTranscriptLimit = 200

// QuickQuestions are offered on an empty chat page.
var QuickQuestions = []string{
	"What documents are in the knowledge base?",
	"How do I request access to a private document?",
	"Summarize the latest onboarding guide.",
}

// ChatBackend sends one question to the assistant.
type ChatBackend interface {
	SendChat(ctx context.Context, req model.ChatRequest) (model.ChatReply, error)
}

// ChatServiceOptions groups dependencies for ChatService.
type ChatServiceOptions struct {
	Backend ChatBackend
	// Limit caps the transcript; older messages are dropped first.
	Limit  int
	Logger *slog.Logger
	Now    func() time.Time
}

// ChatService keeps one client's conversation: the backend session id and a
// bounded transcript.
type ChatService struct {
	backend ChatBackend
	limit   int
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	sessionID string
	messages  []model.ChatMessage
}

// NewChatService constructs a ChatService with an empty transcript.
func NewChatService(opts ChatServiceOptions) *ChatService {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ChatService{backend: opts.Backend, limit: limit, log: opts.Logger, now: now}
}

func (s *ChatService) logger() *slog.Logger {
	if s != nil && s.log != nil {
		return s.log
	}
	return slog.Default()
}

// Ask records the question, sends it and records the answer. Backend failures
// become assistant messages flagged IsError; only blank input returns an error.
func (s *ChatService) Ask(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, apperrors.ValidationField("text", "message is empty")
	}

	s.mu.Lock()
	s.appendLocked(model.ChatMessage{ID: uuid.NewString(), Sender: model.SenderUser, Content: text, At: s.now()})
	sessionID := s.sessionID
	s.mu.Unlock()

	reply, err := s.backend.SendChat(ctx, model.ChatRequest{Text: text, SessionID: sessionID})

	msg := model.ChatMessage{ID: uuid.NewString(), Sender: model.SenderAssistant, At: s.now()}
	if err != nil {
		s.logger().InfoContext(ctx, "chat request failed", slog.Any("error", err))
		msg.Content = UserMessage(err)
		msg.IsError = true
	} else {
		msg.Content = reply.Answer
		msg.ActiveRoute = reply.ActiveRoute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && reply.SessionID != "" {
		s.sessionID = reply.SessionID
	}
	s.appendLocked(msg)
	return msg, nil
}

func (s *ChatService) appendLocked(m model.ChatMessage) {
	s.messages = append(s.messages, m)
	if over := len(s.messages) - s.limit; over > 0 {
		s.messages = append(s.messages[:0:0], s.messages[over:]...)
	}
}

// Transcript returns a copy of the messages, oldest first.
func (s *ChatService) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.messages...)
}

// SessionID returns the backend conversation id, empty before the first answer.
func (s *ChatService) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Reset starts a new conversation.
func (s *ChatService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
	s.messages = nil
}
