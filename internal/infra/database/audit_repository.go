package database

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/ramadhanas/kaskelas/internal/adapters/db"
	"github.com/ramadhanas/kaskelas/internal/domain"
)

const auditTable = "broadcast_logs"

// AuditRepository appends one row per delivery outcome. The coordinator
// treats append failures as non-fatal.
type AuditRepository struct {
	db *db.Client
}

func NewAuditRepository(db *db.Client) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	ds := goqu.Insert(auditTable).Rows(goqu.Record{
		"broadcast_id": entry.BroadcastID,
		"student_id":   entry.StudentID,
		"phone":        entry.Phone,
		"success":      entry.Success,
		"message":      entry.Message,
		"attempts":     entry.Attempts,
		"sent_at":      entry.SentAt,
	})

	if err := r.db.Insert(ctx, ds); err != nil {
		return fmt.Errorf("error appending broadcast log: %w", err)
	}
	return nil
}
