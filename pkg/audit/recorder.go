package audit

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/rbac"
)

// Recorder persists audit entries
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// DBRecorder writes entries to the audit_logs table and mirrors each one to
// a logrus stream. A mirror failure never fails the write.
type DBRecorder struct {
	db     *sql.DB
	mirror *logrus.Logger
}

// NewDBRecorder creates a new database-backed recorder. A nil mirror
// disables the log stream.
func NewDBRecorder(db *sql.DB, mirror *logrus.Logger) (*DBRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBRecorder{db: db, mirror: mirror}, nil
}

// Record persists one entry
func (r *DBRecorder) Record(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (user_id, company_id, action, resource_type, resource_id,
			ip_address, user_agent, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, entry.UserID, entry.CompanyID, string(entry.Action), entry.ResourceType, nullable(entry.ResourceID),
		nullable(entry.IPAddress), nullable(entry.UserAgent), string(entry.Status),
		nullable(entry.ErrorMessage), entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	if r.mirror != nil {
		fields := logrus.Fields{
			"audit_id":      entry.ID,
			"action":        entry.Action,
			"resource_type": entry.ResourceType,
			"status":        entry.Status,
		}
		if entry.UserID != nil {
			fields["user_id"] = *entry.UserID
		}
		if entry.ResourceID != "" {
			fields["resource_id"] = entry.ResourceID
		}
		if entry.ErrorMessage != "" {
			fields["error"] = entry.ErrorMessage
		}
		r.mirror.WithFields(fields).Info("audit event")
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// RecordRequest builds an entry from the HTTP request and acting principal,
// then records it. Errors are returned for the caller to log; audit
// failures must not fail the underlying operation.
func RecordRequest(ctx context.Context, recorder Recorder, r *http.Request, action Action, resourceType, resourceID string, status Status, errMsg string) error {
	if recorder == nil {
		return nil
	}
	entry := &Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       status,
		ErrorMessage: errMsg,
	}
	if r != nil {
		entry.IPAddress = r.RemoteAddr
		entry.UserAgent = r.UserAgent()
	}
	if principal := auth.PrincipalFromContext(ctx); principal != nil {
		entry.UserID = &principal.UserID
		entry.CompanyID = principal.CompanyID
	}
	return recorder.Record(ctx, entry)
}

// DenialRecorder adapts a Recorder to the authorization gate's callback so
// every 403 lands in the audit trail.
type DenialRecorder struct {
	recorder Recorder
	logger   *logrus.Logger
}

// NewDenialRecorder creates a new denial recorder. A nil logger suppresses
// error reporting for failed writes.
func NewDenialRecorder(recorder Recorder, logger *logrus.Logger) *DenialRecorder {
	return &DenialRecorder{recorder: recorder, logger: logger}
}

// RecordDenial implements rbac.DecisionRecorder
func (d *DenialRecorder) RecordDenial(r *http.Request, principal *auth.Principal, resource rbac.Resource, op rbac.Operation) {
	entry := &Entry{
		Action:       ActionAccessDenied,
		ResourceType: string(resource),
		ResourceID:   string(op),
		Status:       StatusDenied,
	}
	if r != nil {
		entry.IPAddress = r.RemoteAddr
		entry.UserAgent = r.UserAgent()
	}
	if principal != nil {
		entry.UserID = &principal.UserID
		entry.CompanyID = principal.CompanyID
	}
	if err := d.recorder.Record(r.Context(), entry); err != nil && d.logger != nil {
		d.logger.WithError(err).Warn("failed to record access denial")
	}
}
