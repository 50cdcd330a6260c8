package messaging

import (
	"context"
	"fmt"

	"gp-connect/internal/models"
)

// RealtimeInterface fans new messages out to subscribed clients.
type RealtimeInterface interface {
	PublishExcept(topic, skipUserID string, payload interface{})
}

// ServiceInterface defines the contract for the messaging service.
type ServiceInterface interface {
	StartConversation(ctx context.Context, userID, role string, req models.StartConversationRequest) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*models.ConversationSummary, error)
	GetMessages(ctx context.Context, conversationID, userID string) ([]*models.Message, error)
	SendMessage(ctx context.Context, conversationID, userID string, req models.SendMessageRequest) (*models.Message, error)
}

// Service implements the messaging logic.
type Service struct {
	repo     RepositoryInterface
	realtime RealtimeInterface
}

// NewService creates a new messaging service. realtime may be nil in tests.
func NewService(repo RepositoryInterface, realtime RealtimeInterface) *Service {
	return &Service{repo: repo, realtime: realtime}
}

// CountUnread is the unread computation for one conversation: messages
// authored by someone else that have not been read yet.
func CountUnread(msgs []*models.Message, viewerID string) int {
	n := 0
	for _, m := range msgs {
		if m.SenderID != viewerID && m.ReadAt == nil {
			n++
		}
	}
	return n
}

// StartConversation opens (or returns) the conversation with a peer.
func (s *Service) StartConversation(ctx context.Context, userID, role string, req models.StartConversationRequest) (*models.Conversation, error) {
	if req.PeerID == userID {
		return nil, fmt.Errorf("%w: cannot message yourself", models.ErrConflict)
	}

	// The sender-role party is stored on the sender side of the pair so
	// the same two users always map to the same conversation row.
	senderID, travelerID := userID, req.PeerID
	if role == models.RoleTraveler {
		senderID, travelerID = req.PeerID, userID
	}

	conv, err := s.repo.EnsureConversation(ctx, req.AssignmentID, senderID, travelerID)
	if err != nil {
		return nil, fmt.Errorf("service.StartConversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the caller's conversation summaries with
// unread counts.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*models.ConversationSummary, error) {
	out, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.ListConversations: %w", err)
	}
	return out, nil
}

// GetMessages returns a conversation's messages oldest first and stamps
// the counterpart's messages read, mirroring the client opening the
// thread.
func (s *Service) GetMessages(ctx context.Context, conversationID, userID string) ([]*models.Message, error) {
	conv, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("service.GetMessages: %w", err)
	}
	if err := member(conv, userID); err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkRead(ctx, conversationID, userID); err != nil {
		return nil, fmt.Errorf("service.GetMessages: mark read: %w", err)
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("service.GetMessages: %w", err)
	}
	return msgs, nil
}

// SendMessage appends a message and pushes it to the counterpart's open
// sockets. The author's own connections are skipped; their client already
// rendered the message optimistically.
func (s *Service) SendMessage(ctx context.Context, conversationID, userID string, req models.SendMessageRequest) (*models.Message, error) {
	conv, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("service.SendMessage: %w", err)
	}
	if err := member(conv, userID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("service.SendMessage: %w", err)
	}

	if s.realtime != nil {
		s.realtime.PublishExcept("conversation:"+conversationID, userID, msg)
	}
	return msg, nil
}

func member(conv *models.Conversation, userID string) error {
	if conv.SenderID == userID || conv.TravelerID == userID {
		return nil
	}
	return models.ErrNotFound
}
