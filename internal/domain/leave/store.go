package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectRequests = `
    SELECT id, applicant_id, leave_type, start_date, end_date, reason, status,
      COALESCE(current_approver_id, ''), version, created_at, updated_at
    FROM leave_requests
`

type PgStore struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

func (s *PgStore) GetRequest(ctx context.Context, id string) (Request, error) {
	rows, err := s.DB.Query(ctx, selectRequests+" WHERE id = $1", id)
	if err != nil {
		return Request{}, err
	}
	out, err := scanRequests(rows)
	if err != nil {
		return Request{}, err
	}
	if len(out) == 0 {
		return Request{}, fmt.Errorf("%w: leave request %s", ErrNotFound, id)
	}
	return out[0], nil
}

func (s *PgStore) CreateRequest(ctx context.Context, req Request) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_requests (id, applicant_id, leave_type, start_date, end_date, reason, status, current_approver_id, version, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11)
  `, req.ID, req.ApplicantID, string(req.LeaveType), req.StartDate, req.EndDate, req.Reason, string(req.Status),
		req.CurrentApproverID, req.Version, req.CreatedAt, req.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: leave request %s already exists", ErrConflict, req.ID)
	}
	return err
}

func (s *PgStore) Transition(ctx context.Context, req Request, expectedVersion int64, entry *HistoryEntry) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $1, current_approver_id = NULLIF($2,''), version = $3, updated_at = $4
    WHERE id = $5 AND version = $6
  `, string(req.Status), req.CurrentApproverID, req.Version, req.UpdatedAt, req.ID, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM leave_requests WHERE id = $1)", req.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: leave request %s", ErrNotFound, req.ID)
		}
		return fmt.Errorf("%w: leave request %s moved past version %d", ErrConflict, req.ID, expectedVersion)
	}

	if entry != nil {
		if _, err := tx.Exec(ctx, `
      INSERT INTO approval_history (id, leave_request_id, approver_id, decision, comments, created_at)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, entry.ID, entry.LeaveRequestID, entry.ApproverID, string(entry.Decision), entry.Comments, entry.Timestamp); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PgStore) HistoryFor(ctx context.Context, requestID string) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, leave_request_id, approver_id, decision, comments, created_at
    FROM approval_history
    WHERE leave_request_id = $1
    ORDER BY created_at, seq
  `, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var decision string
		if err := rows.Scan(&e.ID, &e.LeaveRequestID, &e.ApproverID, &decision, &e.Comments, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Decision = Decision(decision)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) ListByApplicant(ctx context.Context, applicantID string, page Page) ([]Request, error) {
	return s.list(ctx, "applicant_id = $1", applicantID, page)
}

func (s *PgStore) ListPendingFor(ctx context.Context, approverID string, page Page) ([]Request, error) {
	return s.list(ctx, "current_approver_id = $1 AND status = 'PENDING'", approverID, page)
}

func (s *PgStore) ListByStatus(ctx context.Context, status Status, page Page) ([]Request, error) {
	return s.list(ctx, "status = $1", string(status), page)
}

func (s *PgStore) list(ctx context.Context, where string, arg any, page Page) ([]Request, error) {
	limit := any(nil)
	if page.Limit > 0 {
		limit = page.Limit
	}
	rows, err := s.DB.Query(ctx, selectRequests+" WHERE "+where+`
    ORDER BY created_at DESC, id DESC
    LIMIT $2 OFFSET $3
  `, arg, limit, max(page.Offset, 0))
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func scanRequests(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		var r Request
		var leaveType, status string
		if err := rows.Scan(&r.ID, &r.ApplicantID, &leaveType, &r.StartDate, &r.EndDate, &r.Reason, &status,
			&r.CurrentApproverID, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.LeaveType = LeaveType(leaveType)
		r.Status = Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
