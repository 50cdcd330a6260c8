package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gp-connect/internal/models"
	"gp-connect/internal/ws"
	"gp-connect/pkg/mailer"
)

// Notifier records in-app notifications and fans them out over email and
// open websockets. Emission is best-effort: a failed email never fails
// the operation that triggered it.
type Notifier struct {
	db     *pgxpool.Pool
	mailer mailer.ServiceInterface
	hub    *ws.Hub
}

// New creates a Notifier. mailer and hub may be nil.
func New(db *pgxpool.Pool, m mailer.ServiceInterface, hub *ws.Hub) *Notifier {
	return &Notifier{db: db, mailer: m, hub: hub}
}

// Notify stores the notification and pushes it to the recipient's channels.
func (n *Notifier) Notify(ctx context.Context, userID, kind, title, body string, refID *string) {
	notif := models.Notification{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
		RefID:  refID,
	}
	err := n.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, ref_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		notif.ID, notif.UserID, notif.Kind, notif.Title, notif.Body, notif.RefID).Scan(&notif.CreatedAt)
	if err != nil {
		log.Printf("notify: store notification for %s: %v", userID, err)
		return
	}

	if n.hub != nil {
		n.hub.Publish("user:"+userID, &notif)
	}

	if n.mailer != nil {
		var email string
		if err := n.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email); err != nil {
			log.Printf("notify: lookup email for %s: %v", userID, err)
			return
		}
		if err := n.mailer.Send(ctx, email, title, body); err != nil {
			log.Printf("notify: send email to %s: %v", email, err)
		}
	}
}
