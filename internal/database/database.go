package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 16
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates all tables if needed. Keeping the migration in code
// keeps the service self-contained so docker-compose can bootstrap
// everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	kyc_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_login_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS trips (
	id UUID PRIMARY KEY,
	traveler_id UUID NOT NULL REFERENCES users(id),
	from_city TEXT NOT NULL,
	from_country TEXT NOT NULL,
	to_city TEXT NOT NULL,
	to_country TEXT NOT NULL,
	departure_date TIMESTAMPTZ NOT NULL,
	arrival_date TIMESTAMPTZ NOT NULL,
	available_weight_kg DOUBLE PRECISION NOT NULL,
	available_volume_l DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_per_kg DOUBLE PRECISION NOT NULL,
	currency TEXT NOT NULL,
	pickup_time_limit_hrs INT NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trips_search ON trips(from_city, to_city, departure_date) WHERE is_active;

CREATE TABLE IF NOT EXISTS shipments (
	id UUID PRIMARY KEY,
	sender_id UUID NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	weight_kg DOUBLE PRECISION NOT NULL,
	volume_l DOUBLE PRECISION NOT NULL DEFAULT 0,
	pickup_address TEXT NOT NULL,
	pickup_city TEXT NOT NULL,
	pickup_contact_name TEXT NOT NULL,
	pickup_contact_phone TEXT NOT NULL,
	delivery_address TEXT NOT NULL,
	delivery_city TEXT NOT NULL,
	delivery_contact_name TEXT NOT NULL,
	delivery_contact_phone TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS match_requests (
	id UUID PRIMARY KEY,
	shipment_id UUID NOT NULL REFERENCES shipments(id),
	trip_id UUID NOT NULL REFERENCES trips(id),
	sender_id UUID NOT NULL REFERENCES users(id),
	estimated_price DOUBLE PRECISION NOT NULL,
	currency TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	final_price DOUBLE PRECISION,
	confirmed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_match_requests_trip ON match_requests(trip_id, status);

CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY,
	match_request_id UUID NOT NULL UNIQUE REFERENCES match_requests(id),
	shipment_id UUID NOT NULL REFERENCES shipments(id),
	trip_id UUID NOT NULL REFERENCES trips(id),
	sender_id UUID NOT NULL REFERENCES users(id),
	traveler_id UUID NOT NULL REFERENCES users(id),
	final_price DOUBLE PRECISION NOT NULL,
	currency TEXT NOT NULL,
	payment_status TEXT NOT NULL DEFAULT 'pending',
	pickup_completed_at TIMESTAMPTZ,
	delivery_completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tracking_events (
	id UUID PRIMARY KEY,
	assignment_id UUID NOT NULL REFERENCES assignments(id),
	event_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	photo_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tracking_events_assignment ON tracking_events(assignment_id, created_at);

CREATE TABLE IF NOT EXISTS proofs_of_delivery (
	id UUID PRIMARY KEY,
	assignment_id UUID NOT NULL UNIQUE REFERENCES assignments(id),
	recipient_name TEXT NOT NULL,
	photo_url TEXT NOT NULL,
	signature_url TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conversations (
	id UUID PRIMARY KEY,
	assignment_id UUID REFERENCES assignments(id),
	sender_id UUID NOT NULL REFERENCES users(id),
	traveler_id UUID NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_assignment ON conversations(assignment_id) WHERE assignment_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS messages (
	id UUID PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations(id),
	sender_id UUID NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS reviews (
	id UUID PRIMARY KEY,
	assignment_id UUID NOT NULL REFERENCES assignments(id),
	reviewer_id UUID NOT NULL REFERENCES users(id),
	reviewee_id UUID NOT NULL REFERENCES users(id),
	rating INT NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (assignment_id, reviewer_id)
);

CREATE TABLE IF NOT EXISTS disputes (
	id UUID PRIMARY KEY,
	assignment_id UUID NOT NULL REFERENCES assignments(id),
	opened_by_id UUID NOT NULL REFERENCES users(id),
	reason TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	resolution TEXT NOT NULL DEFAULT '',
	resolved_by_id UUID REFERENCES users(id),
	resolved_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS problem_reports (
	id UUID PRIMARY KEY,
	reporter_id UUID NOT NULL REFERENCES users(id),
	assignment_id UUID REFERENCES assignments(id),
	category TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	admin_note TEXT NOT NULL DEFAULT '',
	reviewed_by_id UUID REFERENCES users(id),
	reviewed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS kyc_documents (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	document_type TEXT NOT NULL,
	document_url TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	note TEXT NOT NULL DEFAULT '',
	reviewed_by_id UUID REFERENCES users(id),
	reviewed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	ref_id UUID,
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
