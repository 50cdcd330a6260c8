package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gp-connect/internal/models"
)

type fakeRepo struct {
	conversations map[string]*models.Conversation
	messages      []*models.Message
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{conversations: make(map[string]*models.Conversation)}
}

func (f *fakeRepo) EnsureConversation(ctx context.Context, assignmentID *string, senderID, travelerID string) (*models.Conversation, error) {
	for _, c := range f.conversations {
		if assignmentID != nil && c.AssignmentID != nil && *c.AssignmentID == *assignmentID {
			cp := *c
			return &cp, nil
		}
		if assignmentID == nil && c.AssignmentID == nil && c.SenderID == senderID && c.TravelerID == travelerID {
			cp := *c
			return &cp, nil
		}
	}
	c := &models.Conversation{
		ID:           fmt.Sprintf("conv-%d", len(f.conversations)+1),
		AssignmentID: assignmentID,
		SenderID:     senderID,
		TravelerID:   travelerID,
		CreatedAt:    time.Now(),
	}
	f.conversations[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) FindConversation(ctx context.Context, id string) (*models.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID string) ([]*models.ConversationSummary, error) {
	out := []*models.ConversationSummary{}
	for _, c := range f.conversations {
		if c.SenderID != userID && c.TravelerID != userID {
			continue
		}
		s := &models.ConversationSummary{Conversation: *c}
		for _, m := range f.messages {
			if m.ConversationID == c.ID && m.SenderID != userID && m.ReadAt == nil {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	msg.ID = fmt.Sprintf("msg-%d", len(f.messages)+1)
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	out := []*models.Message{}
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	var n int64
	now := time.Now()
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.SenderID != readerID && m.ReadAt == nil {
			m.ReadAt = &now
			n++
		}
	}
	return n, nil
}

// fakeRealtime records every publish with the skipped user.
type fakeRealtime struct {
	topics  []string
	skipped []string
}

func (f *fakeRealtime) PublishExcept(topic, skipUserID string, payload interface{}) {
	f.topics = append(f.topics, topic)
	f.skipped = append(f.skipped, skipUserID)
}

func TestCountUnread(t *testing.T) {
	now := time.Now()
	msgs := []*models.Message{
		{SenderID: "peer", ReadAt: nil},
		{SenderID: "peer", ReadAt: &now},
		{SenderID: "me", ReadAt: nil},
		{SenderID: "peer", ReadAt: nil},
	}
	if got := CountUnread(msgs, "me"); got != 2 {
		t.Errorf("CountUnread = %d; want 2", got)
	}
	if got := CountUnread(nil, "me"); got != 0 {
		t.Errorf("CountUnread(nil) = %d; want 0", got)
	}
}

func TestStartConversationNormalizesPair(t *testing.T) {
	fr := newFakeRepo()
	svc := NewService(fr, nil)
	ctx := context.Background()

	// Started by the traveler: the peer lands on the sender side.
	c1, err := svc.StartConversation(ctx, "traveler-1", models.RoleTraveler,
		models.StartConversationRequest{PeerID: "sender-1"})
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	if c1.SenderID != "sender-1" || c1.TravelerID != "traveler-1" {
		t.Errorf("pair = (%s, %s); want (sender-1, traveler-1)", c1.SenderID, c1.TravelerID)
	}

	// The same pair started from the other side maps to the same row.
	c2, err := svc.StartConversation(ctx, "sender-1", models.RoleSender,
		models.StartConversationRequest{PeerID: "traveler-1"})
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	if c2.ID != c1.ID {
		t.Errorf("second start created new conversation %s; want %s", c2.ID, c1.ID)
	}

	if _, err := svc.StartConversation(ctx, "u1", models.RoleSender,
		models.StartConversationRequest{PeerID: "u1"}); !errors.Is(err, models.ErrConflict) {
		t.Errorf("self conversation error = %v; want ErrConflict", err)
	}
}

func TestSendMessageSkipsAuthorSockets(t *testing.T) {
	fr := newFakeRepo()
	rt := &fakeRealtime{}
	svc := NewService(fr, rt)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "sender-1", models.RoleSender,
		models.StartConversationRequest{PeerID: "traveler-1"})
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}

	msg, err := svc.SendMessage(ctx, conv.ID, "sender-1", models.SendMessageRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q", msg.Content)
	}
	if len(rt.topics) != 1 || rt.topics[0] != "conversation:"+conv.ID {
		t.Errorf("published topics = %v", rt.topics)
	}
	if rt.skipped[0] != "sender-1" {
		t.Errorf("skipped = %s; want the author sender-1", rt.skipped[0])
	}

	// Non-members cannot post.
	if _, err := svc.SendMessage(ctx, conv.ID, "stranger", models.SendMessageRequest{Content: "hi"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("outsider SendMessage error = %v; want ErrNotFound", err)
	}
}

func TestGetMessagesMarksRead(t *testing.T) {
	fr := newFakeRepo()
	svc := NewService(fr, nil)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "sender-1", models.RoleSender,
		models.StartConversationRequest{PeerID: "traveler-1"})
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	if _, err := svc.SendMessage(ctx, conv.ID, "traveler-1", models.SendMessageRequest{Content: "on my way"}); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}

	sums, err := svc.ListConversations(ctx, "sender-1")
	if err != nil {
		t.Fatalf("ListConversations error: %v", err)
	}
	if len(sums) != 1 || sums[0].UnreadCount != 1 {
		t.Fatalf("summaries = %+v; want one with UnreadCount 1", sums)
	}

	// Opening the thread stamps the counterpart's messages read.
	msgs, err := svc.GetMessages(ctx, conv.ID, "sender-1")
	if err != nil {
		t.Fatalf("GetMessages error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d; want 1", len(msgs))
	}

	sums, _ = svc.ListConversations(ctx, "sender-1")
	if sums[0].UnreadCount != 0 {
		t.Errorf("UnreadCount after open = %d; want 0", sums[0].UnreadCount)
	}

	// The author's own unread view is unaffected by the reader's stamp
	// direction: traveler still has zero unread (their own message).
	travSums, _ := svc.ListConversations(ctx, "traveler-1")
	if travSums[0].UnreadCount != 0 {
		t.Errorf("traveler UnreadCount = %d; want 0", travSums[0].UnreadCount)
	}
}
