package ws

import (
	"strings"
	"testing"
)

func recv(t *testing.T, c *Client) (string, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		return string(msg), ok
	default:
		return "", false
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	a := NewClient("user-a", nil)
	b := NewClient("user-b", nil)
	hub.Subscribe("assignment:a1", a)
	hub.Subscribe("assignment:a1", b)

	hub.Publish("assignment:a1", map[string]string{"event_type": "pickup_completed"})

	for _, c := range []*Client{a, b} {
		msg, ok := recv(t, c)
		if !ok {
			t.Fatalf("client %s received nothing", c.UserID)
		}
		if !strings.Contains(msg, "pickup_completed") {
			t.Errorf("unexpected payload %q", msg)
		}
	}
}

func TestPublishExceptSkipsOwner(t *testing.T) {
	hub := NewHub()
	author := NewClient("user-a", nil)
	other := NewClient("user-b", nil)
	hub.Subscribe("conversation:c1", author)
	hub.Subscribe("conversation:c1", other)

	hub.PublishExcept("conversation:c1", "user-a", map[string]string{"content": "hi"})

	if msg, ok := recv(t, author); ok {
		t.Errorf("author got echoed their own message: %q", msg)
	}
	if _, ok := recv(t, other); !ok {
		t.Error("other participant received nothing")
	}
}

func TestUnsubscribeKeepsMultiTopicClientOpen(t *testing.T) {
	hub := NewHub()
	c := NewClient("user-a", nil)
	hub.Subscribe("user:user-a", c)
	hub.Subscribe("assignment:a1", c)

	hub.Unsubscribe("assignment:a1", c)

	hub.Publish("user:user-a", map[string]string{"kind": "match_request"})
	msg, ok := recv(t, c)
	if !ok {
		t.Fatal("client dropped off its remaining topic")
	}
	if !strings.Contains(msg, "match_request") {
		t.Errorf("unexpected payload %q", msg)
	}

	hub.Unsubscribe("user:user-a", c)
	if _, open := <-c.Send; open {
		t.Error("send channel still open after leaving the last topic")
	}
}

func TestUnsubscribeTwiceIsHarmless(t *testing.T) {
	hub := NewHub()
	c := NewClient("user-a", nil)
	hub.Subscribe("assignment:a1", c)

	hub.Unsubscribe("assignment:a1", c)
	hub.Unsubscribe("assignment:a1", c)

	if _, open := <-c.Send; open {
		t.Error("send channel should be closed")
	}
}

func TestDuplicateSubscribeCountsOnce(t *testing.T) {
	hub := NewHub()
	c := NewClient("user-a", nil)
	hub.Subscribe("assignment:a1", c)
	hub.Subscribe("assignment:a1", c)

	hub.Unsubscribe("assignment:a1", c)
	if _, open := <-c.Send; open {
		t.Error("send channel should be closed after the only topic is gone")
	}
}
