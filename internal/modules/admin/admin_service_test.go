package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"gp-connect/internal/models"
)

type fakeRepo struct {
	documents map[string]*models.KYCDocument
	disputes  map[string]*models.Dispute
	reports   map[string]*models.ProblemReport
	verified  map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		documents: make(map[string]*models.KYCDocument),
		disputes:  make(map[string]*models.Dispute),
		reports:   make(map[string]*models.ProblemReport),
		verified:  make(map[string]bool),
	}
}

func (f *fakeRepo) ListKYCDocuments(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.KYCDocument, int, error) {
	out := []*models.KYCDocument{}
	for _, d := range f.documents {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeRepo) DecideKYC(ctx context.Context, documentID, adminID, status, note string) (*models.KYCDocument, error) {
	d, ok := f.documents[documentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if d.Status != models.KYCStatusPending {
		return nil, models.ErrAlreadyDecided
	}
	now := time.Now()
	d.Status = status
	d.Note = note
	d.ReviewedByID = &adminID
	d.ReviewedAt = &now
	if status == models.KYCStatusApproved {
		f.verified[d.UserID] = true
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) ListDisputes(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.Dispute, int, error) {
	out := []*models.Dispute{}
	for _, d := range f.disputes {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeRepo) ResolveDispute(ctx context.Context, disputeID, adminID, status, resolution string) (*models.Dispute, error) {
	d, ok := f.disputes[disputeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if d.Status != models.DisputeStatusOpen {
		return nil, models.ErrAlreadyDecided
	}
	now := time.Now()
	d.Status = status
	d.Resolution = resolution
	d.ResolvedByID = &adminID
	d.ResolvedAt = &now
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) ListReports(ctx context.Context, filter QueueFilter, page, limit int) ([]*models.ProblemReport, int, error) {
	out := []*models.ProblemReport{}
	for _, r := range f.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeRepo) ResolveReport(ctx context.Context, reportID, adminID, status, note string) (*models.ProblemReport, error) {
	r, ok := f.reports[reportID]
	if !ok {
		return nil, models.ErrNotFound
	}
	now := time.Now()
	r.Status = status
	r.AdminNote = note
	r.ReviewedByID = &adminID
	r.ReviewedAt = &now
	cp := *r
	return &cp, nil
}

// fakeNotifier records emitted notifications.
type fakeNotifier struct {
	kinds []string
	users []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, kind, title, body string, refID *string) {
	f.kinds = append(f.kinds, kind)
	f.users = append(f.users, userID)
}

func TestApproveKYC(t *testing.T) {
	fr := newFakeRepo()
	fr.documents["d1"] = &models.KYCDocument{
		ID:     "d1",
		UserID: "traveler-1",
		Status: models.KYCStatusPending,
	}
	fn := &fakeNotifier{}
	svc := NewService(fr, fn)
	ctx := context.Background()

	doc, err := svc.ApproveKYC(ctx, "d1", "admin-1", "")
	if err != nil {
		t.Fatalf("ApproveKYC error: %v", err)
	}
	if doc.Status != models.KYCStatusApproved {
		t.Errorf("Status = %s; want approved", doc.Status)
	}
	if doc.ReviewedByID == nil || *doc.ReviewedByID != "admin-1" {
		t.Error("reviewer not stamped")
	}
	if !fr.verified["traveler-1"] {
		t.Error("user not marked verified on approval")
	}
	if len(fn.kinds) != 1 || fn.kinds[0] != "kyc_approved" {
		t.Errorf("notifications = %v; want one kyc_approved", fn.kinds)
	}

	// A document is decided exactly once.
	if _, err := svc.RejectKYC(ctx, "d1", "admin-1", "blurry scan"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Errorf("decide twice error = %v; want ErrAlreadyDecided", err)
	}
}

func TestRejectKYCKeepsUserUnverified(t *testing.T) {
	fr := newFakeRepo()
	fr.documents["d1"] = &models.KYCDocument{
		ID:     "d1",
		UserID: "traveler-1",
		Status: models.KYCStatusPending,
	}
	svc := NewService(fr, nil)

	doc, err := svc.RejectKYC(context.Background(), "d1", "admin-1", "document expired")
	if err != nil {
		t.Fatalf("RejectKYC error: %v", err)
	}
	if doc.Status != models.KYCStatusRejected {
		t.Errorf("Status = %s; want rejected", doc.Status)
	}
	if doc.Note != "document expired" {
		t.Errorf("Note = %q", doc.Note)
	}
	if fr.verified["traveler-1"] {
		t.Error("user verified on rejection")
	}
}

func TestResolveDispute(t *testing.T) {
	fr := newFakeRepo()
	fr.disputes["dp1"] = &models.Dispute{
		ID:         "dp1",
		OpenedByID: "sender-1",
		Status:     models.DisputeStatusOpen,
	}
	fn := &fakeNotifier{}
	svc := NewService(fr, fn)
	ctx := context.Background()

	d, err := svc.ResolveDispute(ctx, "dp1", "admin-1", "Refund issued")
	if err != nil {
		t.Fatalf("ResolveDispute error: %v", err)
	}
	if d.Status != models.DisputeStatusResolved {
		t.Errorf("Status = %s; want resolved", d.Status)
	}
	if len(fn.users) != 1 || fn.users[0] != "sender-1" {
		t.Errorf("notified users = %v; want the opener", fn.users)
	}

	if _, err := svc.CloseDispute(ctx, "dp1", "admin-1", "already handled"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Errorf("second decision error = %v; want ErrAlreadyDecided", err)
	}
}

func TestResolveReportStatusCheck(t *testing.T) {
	fr := newFakeRepo()
	fr.reports["r1"] = &models.ProblemReport{
		ID:         "r1",
		ReporterID: "sender-1",
		Status:     models.ReportStatusOpen,
	}
	svc := NewService(fr, nil)
	ctx := context.Background()

	if _, err := svc.ResolveReport(ctx, "r1", "admin-1", "bogus", "note"); !errors.Is(err, models.ErrConflict) {
		t.Errorf("invalid status error = %v; want ErrConflict", err)
	}

	rep, err := svc.ResolveReport(ctx, "r1", "admin-1", models.ReportStatusResolved, "Fixed in release 1.4")
	if err != nil {
		t.Fatalf("ResolveReport error: %v", err)
	}
	if rep.Status != models.ReportStatusResolved {
		t.Errorf("Status = %s; want resolved", rep.Status)
	}
}

func TestQueueStatusFilter(t *testing.T) {
	fr := newFakeRepo()
	fr.documents["d1"] = &models.KYCDocument{ID: "d1", Status: models.KYCStatusPending}
	fr.documents["d2"] = &models.KYCDocument{ID: "d2", Status: models.KYCStatusApproved}
	svc := NewService(fr, nil)

	docs, total, err := svc.GetKYCQueue(context.Background(), QueueFilter{Status: models.KYCStatusPending}, 0, 0)
	if err != nil {
		t.Fatalf("GetKYCQueue error: %v", err)
	}
	if total != 1 || len(docs) != 1 || docs[0].ID != "d1" {
		t.Errorf("filtered queue = %+v (total %d); want only d1", docs, total)
	}
}
