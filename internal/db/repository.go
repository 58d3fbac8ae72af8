// Package db provides CRUD repository operations for FixDesk data models.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	apperrors "github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// Repository provides CRUD operations for repairs and SMS logs.
// Every operation is a single statement; there is no batching and no
// optimistic concurrency control.
type Repository struct {
	db *sql.DB

	// Prepared statements are created on first use and reused.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

// =====================================================
// Repair Operations
// =====================================================

const repairColumns = `id, customerName, phone, model, imei, problem, status,
	imagePath, createdAt, completedAt, pin, password, pattern`

// InsertRepair stores a new repair job and returns its assigned ID.
// The ID is also written back to job.
func (r *Repository) InsertRepair(ctx context.Context, job *models.RepairJob) (int64, error) {
	job.ApplyDefaults()

	query := `
	INSERT INTO repairs (customerName, phone, model, imei, problem, status,
		imagePath, createdAt, completedAt, pin, password, pattern)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "insert repair", err)
	}

	res, err := stmt.ExecContext(ctx, job.CustomerName, job.Phone, job.Model, job.IMEI,
		job.Problem, string(job.Status), nullString(job.ImagePath), job.CreatedAt,
		nullInt64(job.CompletedAt), nullString(job.PIN), nullString(job.Password),
		nullString(job.Pattern))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "insert repair", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "insert repair", err)
	}
	job.ID = id
	return id, nil
}

// UpdateRepair overwrites every column of the repair with job.ID.
// A missing ID affects 0 rows and is not an error.
func (r *Repository) UpdateRepair(ctx context.Context, job *models.RepairJob) (int64, error) {
	query := `
	UPDATE repairs
	SET customerName = ?, phone = ?, model = ?, imei = ?, problem = ?, status = ?,
		imagePath = ?, createdAt = ?, completedAt = ?, pin = ?, password = ?, pattern = ?
	WHERE id = ?
	`
	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "update repair", err)
	}

	res, err := stmt.ExecContext(ctx, job.CustomerName, job.Phone, job.Model, job.IMEI,
		job.Problem, string(job.Status), nullString(job.ImagePath), job.CreatedAt,
		nullInt64(job.CompletedAt), nullString(job.PIN), nullString(job.Password),
		nullString(job.Pattern), job.ID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "update repair", err)
	}
	return rowsAffected(res, "update repair")
}

// DeleteRepair hard deletes the repair with the given ID.
// A missing ID affects 0 rows and is not an error.
func (r *Repository) DeleteRepair(ctx context.Context, id int64) (int64, error) {
	stmt, err := r.PrepareStmt(ctx, `DELETE FROM repairs WHERE id = ?`)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "delete repair", err)
	}

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "delete repair", err)
	}
	return rowsAffected(res, "delete repair")
}

// GetRepair retrieves a repair by ID.
func (r *Repository) GetRepair(ctx context.Context, id int64) (*models.RepairJob, error) {
	stmt, err := r.PrepareStmt(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id = ?`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "get repair", err)
	}

	job, err := scanRepair(stmt.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "repair %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "get repair", err)
	}
	return job, nil
}

// ListRepairs returns every repair, newest createdAt first.
func (r *Repository) ListRepairs(ctx context.Context) ([]*models.RepairJob, error) {
	query := `SELECT ` + repairColumns + ` FROM repairs ORDER BY createdAt DESC, id DESC`
	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list repairs", err)
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list repairs", err)
	}
	defer rows.Close()

	items := make([]*models.RepairJob, 0)
	for rows.Next() {
		job, err := scanRepair(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "scan repair", err)
		}
		items = append(items, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list repairs", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepair(row rowScanner) (*models.RepairJob, error) {
	var job models.RepairJob
	var status string
	var imagePath, pin, password, pattern sql.NullString
	var completedAt sql.NullInt64

	err := row.Scan(&job.ID, &job.CustomerName, &job.Phone, &job.Model, &job.IMEI,
		&job.Problem, &status, &imagePath, &job.CreatedAt, &completedAt,
		&pin, &password, &pattern)
	if err != nil {
		return nil, err
	}

	job.Status = models.RepairStatus(status)
	job.ImagePath = imagePath.String
	job.PIN = pin.String
	job.Password = password.String
	job.Pattern = pattern.String
	if completedAt.Valid {
		ms := completedAt.Int64
		job.CompletedAt = &ms
	}
	return &job, nil
}

// =====================================================
// SMS Log Operations
// =====================================================

// InsertSmsLog appends an SMS log entry and returns its assigned ID.
func (r *Repository) InsertSmsLog(ctx context.Context, log *models.SmsLog) (int64, error) {
	if log.SentAt == 0 {
		log.SentAt = models.NowMillis()
	}

	stmt, err := r.PrepareStmt(ctx,
		`INSERT INTO sms_logs (toNumber, message, sentAt, status) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "insert sms log", err)
	}

	res, err := stmt.ExecContext(ctx, log.ToNumber, log.Message, log.SentAt, string(log.Status))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "insert sms log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "insert sms log", err)
	}
	log.ID = id
	return id, nil
}

// ListSmsLogs returns every SMS log entry, newest sentAt first.
func (r *Repository) ListSmsLogs(ctx context.Context) ([]*models.SmsLog, error) {
	stmt, err := r.PrepareStmt(ctx,
		`SELECT id, toNumber, message, sentAt, status FROM sms_logs ORDER BY sentAt DESC, id DESC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list sms logs", err)
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list sms logs", err)
	}
	defer rows.Close()

	logs := make([]*models.SmsLog, 0)
	for rows.Next() {
		var l models.SmsLog
		var status string
		if err := rows.Scan(&l.ID, &l.ToNumber, &l.Message, &l.SentAt, &status); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "scan sms log", err)
		}
		l.Status = models.SmsStatus(status)
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list sms logs", err)
	}
	return logs, nil
}

// CountRepairs returns the number of stored repairs.
func (r *Repository) CountRepairs(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repairs`).Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "count repairs", err)
	}
	return n, nil
}

// CountSmsLogs returns the number of stored SMS log entries.
func (r *Repository) CountSmsLogs(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sms_logs`).Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "count sms logs", err)
	}
	return n, nil
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, op, err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
