package models

import "time"

// Conversation groups messages between a sender and a traveler, usually
// keyed to an assignment. Ad hoc pre-booking conversations have no
// assignment.
type Conversation struct {
	ID           string    `json:"id"`
	AssignmentID *string   `json:"assignment_id,omitempty"`
	SenderID     string    `json:"sender_id"`
	TravelerID   string    `json:"traveler_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationSummary is a conversation list row with the last message and
// the viewer's unread count joined in.
type ConversationSummary struct {
	Conversation
	Counterpart    *PublicProfile `json:"counterpart,omitempty"`
	LastMessage    *Message       `json:"last_message,omitempty"`
	UnreadCount    int            `json:"unread_count"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

// Message is an append-only conversation entry. ReadAt is null until the
// counterpart opens the conversation.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SendMessageRequest is the payload for posting a message.
type SendMessageRequest struct {
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"image_url,omitempty"`
}

// StartConversationRequest opens an ad hoc conversation with another user.
type StartConversationRequest struct {
	AssignmentID *string `json:"assignment_id,omitempty"`
	PeerID       string  `json:"peer_id" validate:"required"`
}
