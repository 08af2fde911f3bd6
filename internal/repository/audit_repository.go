// box_writes is a write-behind audit trail of every update the board
// received, including ones shadowed by the admin grace window. It is never
// read back into the live store; it exists so staff can answer "who
// flipped box 1-3 during lunch" after the fact.
package repository

import (
	"context"
	"database/sql"
	"log"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/model"
)

type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// RecordWrite appends one row to box_writes. Failures are logged and
// swallowed: the audit trail must never fail a board update.
func (r *AuditRepo) RecordWrite(ctx context.Context, boxID string, status model.BoxStatus, actor model.Actor, applied bool) {
	if r == nil || r.DB == nil {
		return
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO box_writes (box_id, status, actor, applied) VALUES (?,?,?,?)",
		boxID, string(status), string(actor), applied)
	if err != nil {
		log.Printf("audit: record write failed: %v", err)
	}
}

// RecordReset appends one reset marker row per board reset.
func (r *AuditRepo) RecordReset(ctx context.Context, actor model.Actor) {
	if r == nil || r.DB == nil {
		return
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO box_writes (box_id, status, actor, applied) VALUES ('*', 'waiting', ?, TRUE)",
		string(actor))
	if err != nil {
		log.Printf("audit: record reset failed: %v", err)
	}
}
