package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gp-connect/internal/models"
	"gp-connect/internal/ws"

	"github.com/labstack/echo/v4"
)

func TestTrackingEventsReachAssignmentSubscribers(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	hub := ws.NewHub()
	svc := NewService(fr, &fakePayment{}, nil, hub)

	// A sender listening on the assignment topic, the way the websocket
	// endpoint subscribes its clients.
	client := ws.NewClient("sender-1", nil)
	hub.Subscribe("assignment:a1", client)

	if _, err := svc.MarkPickedUp(context.Background(), "a1", "traveler-1"); err != nil {
		t.Fatalf("MarkPickedUp error: %v", err)
	}

	select {
	case data := <-client.Send:
		var ev models.TrackingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal pushed event: %v", err)
		}
		if ev.EventType != models.TrackingEventPickup {
			t.Errorf("pushed event type = %s; want %s", ev.EventType, models.TrackingEventPickup)
		}
	default:
		t.Fatal("no event pushed to the assignment topic")
	}
}

func TestSubscribeRejectsOutsiderBeforeUpgrade(t *testing.T) {
	fr := newFakeRepo()
	seedAssignment(fr)
	hub := ws.NewHub()
	h := NewHandler(NewService(fr, &fakePayment{}, nil, hub), nil, hub)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/assignments/a1/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("assignmentId")
	c.SetParamValues("a1")
	c.Set("userID", "stranger")
	c.Set("userRole", models.RoleSender)

	if err := h.Subscribe(c); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterRoutesExposesAssignmentSocket(t *testing.T) {
	hub := ws.NewHub()
	h := NewHandler(NewService(newFakeRepo(), &fakePayment{}, nil, hub), nil, hub)

	e := echo.New()
	h.RegisterRoutes(e.Group(""))

	found := false
	for _, r := range e.Routes() {
		if r.Method == http.MethodGet && r.Path == "/assignments/:assignmentId/ws" {
			found = true
		}
	}
	if !found {
		t.Error("GET /assignments/:assignmentId/ws not registered")
	}
}
