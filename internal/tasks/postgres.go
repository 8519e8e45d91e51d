package tasks

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const taskColumns = `
	id, title, COALESCE(description, ''), status, priority,
	COALESCE(category, ''), estimated_minutes,
	created_at, updated_at, completed_at, user_id`

// PostgresStore is the production Store over a tasks table.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var (
		t         Task
		estimated sql.NullInt64
		completed sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.Category, &estimated,
		&t.CreatedAt, &t.UpdatedAt, &completed, &t.UserID,
	)
	if err != nil {
		return Task{}, err
	}
	if estimated.Valid {
		v := int(estimated.Int64)
		t.EstimatedMinutes = &v
	}
	if completed.Valid {
		v := completed.Time
		t.CompletedAt = &v
	}
	return t, nil
}

func (s *PostgresStore) List(ctx context.Context, userID int, f Filters) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $2`
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		if f.Status != "" {
			query += ` AND priority = $3`
		} else {
			query += ` AND priority = $2`
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, userID, id int) (Task, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) Create(ctx context.Context, userID int, d Draft) (Task, error) {
	priority := d.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, priority, category, estimated_minutes, user_id)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6)
		RETURNING `+taskColumns,
		d.Title, d.Description, priority, d.Category, d.EstimatedMinutes, userID,
	)
	return scanTask(row)
}

func (s *PostgresStore) Update(ctx context.Context, userID, id int, p Patch) (Task, error) {
	// completed_at tracks the status transition: set on entering completed,
	// cleared on leaving it, untouched when status is not part of the patch.
	row := s.DB.QueryRowContext(ctx, `
		UPDATE tasks
		SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			status = COALESCE($3, status),
			priority = COALESCE($4, priority),
			completed_at = CASE
				WHEN $3 = 'completed' THEN CURRENT_TIMESTAMP
				WHEN $3 != 'completed' THEN NULL
				ELSE completed_at
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 AND user_id = $6
		RETURNING `+taskColumns,
		p.Title, p.Description, p.Status, p.Priority, id, userID,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id int) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, userID int) (Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending,
			COUNT(CASE WHEN status = 'in_progress' THEN 1 END) AS in_progress,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed,
			COUNT(CASE WHEN priority = 'high' THEN 1 END) AS high_priority,
			COUNT(CASE WHEN priority = 'medium' THEN 1 END) AS medium_priority,
			COUNT(CASE WHEN priority = 'low' THEN 1 END) AS low_priority
		FROM tasks
		WHERE user_id = $1
	`, userID).Scan(
		&st.Total, &st.Pending, &st.InProgress, &st.Completed,
		&st.HighPriority, &st.MediumPriority, &st.LowPriority,
	)
	return st, err
}

func (s *PostgresStore) BulkSetStatus(ctx context.Context, userID int, ids []int, status string) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		UPDATE tasks
		SET status = $1,
			completed_at = CASE
				WHEN $1 = 'completed' THEN CURRENT_TIMESTAMP
				ELSE NULL
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2 AND id = ANY($3::int[])
		RETURNING `+taskColumns,
		status, userID, pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Task, 0, len(ids))
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
