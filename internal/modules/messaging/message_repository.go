package messaging

import (
	"context"
	"errors"
	"fmt"

	"gp-connect/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the messaging repository.
type RepositoryInterface interface {
	EnsureConversation(ctx context.Context, assignmentID *string, senderID, travelerID string) (*models.Conversation, error)
	FindConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*models.ConversationSummary, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new messaging repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// EnsureConversation returns the conversation for the pair, creating it on
// first use. Assignment-keyed conversations are unique per assignment.
func (r *Repository) EnsureConversation(ctx context.Context, assignmentID *string, senderID, travelerID string) (*models.Conversation, error) {
	var c models.Conversation
	var err error
	if assignmentID != nil {
		err = r.db.QueryRow(ctx, `
			SELECT id, assignment_id, sender_id, traveler_id, created_at
			FROM conversations WHERE assignment_id = $1`, *assignmentID).Scan(
			&c.ID, &c.AssignmentID, &c.SenderID, &c.TravelerID, &c.CreatedAt)
	} else {
		err = r.db.QueryRow(ctx, `
			SELECT id, assignment_id, sender_id, traveler_id, created_at
			FROM conversations
			WHERE assignment_id IS NULL AND sender_id = $1 AND traveler_id = $2`,
			senderID, travelerID).Scan(
			&c.ID, &c.AssignmentID, &c.SenderID, &c.TravelerID, &c.CreatedAt)
	}
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository.EnsureConversation: lookup: %w", err)
	}

	c = models.Conversation{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		SenderID:     senderID,
		TravelerID:   travelerID,
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO conversations (id, assignment_id, sender_id, traveler_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		c.ID, c.AssignmentID, c.SenderID, c.TravelerID).Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.EnsureConversation: insert: %w", err)
	}
	return &c, nil
}

// FindConversation retrieves a conversation by id.
func (r *Repository) FindConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var c models.Conversation
	err := r.db.QueryRow(ctx, `
		SELECT id, assignment_id, sender_id, traveler_id, created_at
		FROM conversations WHERE id = $1`, conversationID).Scan(
		&c.ID, &c.AssignmentID, &c.SenderID, &c.TravelerID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindConversation: %w", err)
	}
	return &c, nil
}

// ListForUser returns the user's conversations with the counterpart
// profile, last message and unread count joined in. The unread counts come
// from one aggregate instead of a count query per conversation.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]*models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.assignment_id, c.sender_id, c.traveler_id, c.created_at,
			u.id, u.full_name, u.city, u.avatar_url, u.role, u.kyc_verified, u.created_at,
			COALESCE(un.unread, 0),
			COALESCE(lm.created_at, c.created_at)
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.sender_id = $1 THEN c.traveler_id ELSE c.sender_id END
		LEFT JOIN (
			SELECT conversation_id, COUNT(*) AS unread
			FROM messages
			WHERE sender_id <> $1 AND read_at IS NULL
			GROUP BY conversation_id
		) un ON un.conversation_id = c.id
		LEFT JOIN LATERAL (
			SELECT created_at FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC LIMIT 1
		) lm ON TRUE
		WHERE c.sender_id = $1 OR c.traveler_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListForUser: %w", err)
	}
	defer rows.Close()

	var out []*models.ConversationSummary
	for rows.Next() {
		var s models.ConversationSummary
		var p models.PublicProfile
		err := rows.Scan(
			&s.ID, &s.AssignmentID, &s.SenderID, &s.TravelerID, &s.CreatedAt,
			&p.ID, &p.FullName, &p.City, &p.AvatarURL, &p.Role, &p.KYCVerified, &p.MemberSince,
			&s.UnreadCount, &s.LastActivityAt)
		if err != nil {
			return nil, fmt.Errorf("repository.ListForUser.Scan: %w", err)
		}
		s.Counterpart = &p
		out = append(out, &s)
	}

	// Attach last messages in one batch keyed by the collected ids.
	ids := make([]string, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.ID)
	}
	if len(ids) > 0 {
		lastByConv, err := r.lastMessages(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("repository.ListForUser.lastMessages: %w", err)
		}
		for _, s := range out {
			s.LastMessage = lastByConv[s.ID]
		}
	}
	return out, nil
}

func (r *Repository) lastMessages(ctx context.Context, conversationIDs []string) (map[string]*models.Message, error) {
	query := `
		SELECT DISTINCT ON (conversation_id)
			id, conversation_id, sender_id, content, image_url, read_at, created_at
		FROM messages
		WHERE conversation_id = ANY($1)
		ORDER BY conversation_id, created_at DESC`
	rows, err := r.db.Query(ctx, query, conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.Message, len(conversationIDs))
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content,
			&m.ImageURL, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out[m.ConversationID] = &m
	}
	return out, nil
}

// CreateMessage appends a message to a conversation.
func (r *Repository) CreateMessage(ctx context.Context, msg *models.Message) error {
	msg.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.ImageURL).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateMessage: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages oldest first.
func (r *Repository) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, image_url, read_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListMessages: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content,
			&m.ImageURL, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListMessages.Scan: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

// MarkRead bulk-stamps read_at on the counterpart's unread messages.
func (r *Repository) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE messages SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("repository.MarkRead: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
