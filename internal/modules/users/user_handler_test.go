package users

import (
	"net/http"
	"testing"

	"gp-connect/internal/ws"

	"github.com/labstack/echo/v4"
)

func TestRegisterRoutesExposesNotificationSocket(t *testing.T) {
	h := NewHandler(nil, nil, ws.NewHub())

	e := echo.New()
	h.RegisterRoutes(e.Group(""))

	found := false
	for _, r := range e.Routes() {
		if r.Method == http.MethodGet && r.Path == "/notifications/ws" {
			found = true
		}
	}
	if !found {
		t.Error("GET /notifications/ws not registered")
	}
}
