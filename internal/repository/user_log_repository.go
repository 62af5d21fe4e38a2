package repository

import (
	"context"
	"time"

	"github.com/xl-support/helpdesk/internal/domain"
)

// UserLogRepository persists sign-in activity.
type UserLogRepository interface {
	Create(ctx context.Context, entry *domain.UserLog) error
	MarkSignedOut(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context) ([]domain.UserLog, error)
}

type userLogRepository struct {
	db DB
}

// NewUserLogRepository returns a Postgres-backed implementation.
func NewUserLogRepository(db DB) UserLogRepository {
	return &userLogRepository{db: db}
}

func (r *userLogRepository) Create(ctx context.Context, entry *domain.UserLog) error {
	const query = `
        INSERT INTO user_logs (user_id, staff_id, department, activity, sign_in_time)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.StaffID,
		entry.Department,
		entry.Activity,
		entry.SignInTime,
	).Scan(&entry.ID, &entry.CreatedAt)
	return translateError(err)
}

// MarkSignedOut stamps the sign-out time once; later calls leave the first
// stamp in place.
func (r *userLogRepository) MarkSignedOut(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE user_logs SET sign_out_time=COALESCE(sign_out_time, $1) WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userLogRepository) List(ctx context.Context) ([]domain.UserLog, error) {
	const query = `
        SELECT id, user_id, staff_id, department, activity, sign_in_time, sign_out_time, created_at
        FROM user_logs ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	logs := []domain.UserLog{}
	for rows.Next() {
		var entry domain.UserLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.StaffID,
			&entry.Department,
			&entry.Activity,
			&entry.SignInTime,
			&entry.SignOutTime,
			&entry.CreatedAt,
		); err != nil {
			return nil, translateError(err)
		}
		logs = append(logs, entry)
	}
	return logs, translateError(rows.Err())
}
