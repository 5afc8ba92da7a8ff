package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"keramika/internal/models"
)

func (db *DB) CreateSchedulingRule(ctx context.Context, rule *models.SchedulingRule) error {
	query := `INSERT INTO schedule_rules (day_of_week, time, instructor_id, capacity, technique, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		rule.DayOfWeek,
		rule.Time,
		rule.InstructorID,
		rule.Capacity,
		rule.Technique,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduling rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = id
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

func (db *DB) GetSchedulingRules(ctx context.Context) ([]models.SchedulingRule, error) {
	query := `SELECT id, day_of_week, time, instructor_id, capacity, technique, created_at, updated_at
              FROM schedule_rules ORDER BY day_of_week, time, instructor_id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduling rules: %w", err)
	}
	defer rows.Close()

	var rules []models.SchedulingRule
	for rows.Next() {
		var rule models.SchedulingRule
		err := rows.Scan(
			&rule.ID,
			&rule.DayOfWeek,
			&rule.Time,
			&rule.InstructorID,
			&rule.Capacity,
			&rule.Technique,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduling rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (db *DB) DeleteSchedulingRule(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM schedule_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduling rule: %w", err)
	}
	return nil
}

// SetSessionOverride replaces any existing override for the date. A closed
// override carries no sessions; a replacement override stores its explicit
// session list.
func (db *DB) SetSessionOverride(ctx context.Context, override *models.SessionOverride) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM override_sessions WHERE date = ?`, override.Date); err != nil {
		return fmt.Errorf("failed to clear override sessions: %w", err)
	}

	query := `INSERT INTO session_overrides (date, closed) VALUES (?, ?)
              ON CONFLICT(date) DO UPDATE SET closed = excluded.closed`
	if _, err := tx.ExecContext(ctx, query, override.Date, override.Closed); err != nil {
		return fmt.Errorf("failed to upsert session override: %w", err)
	}

	for _, session := range override.Sessions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO override_sessions (date, time, instructor_id, capacity) VALUES (?, ?, ?, ?)`,
			override.Date, session.Time, session.InstructorID, session.Capacity)
		if err != nil {
			return fmt.Errorf("failed to insert override session: %w", err)
		}
	}

	return tx.Commit()
}

// GetSessionOverrides returns all overrides keyed by their ISO date.
func (db *DB) GetSessionOverrides(ctx context.Context) (map[string]models.SessionOverride, error) {
	rows, err := db.QueryContext(ctx, `SELECT date, closed FROM session_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to get session overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]models.SessionOverride)
	for rows.Next() {
		var override models.SessionOverride
		if err := rows.Scan(&override.Date, &override.Closed); err != nil {
			return nil, fmt.Errorf("failed to scan session override: %w", err)
		}
		overrides[override.Date] = override
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	sessionRows, err := db.QueryContext(ctx,
		`SELECT date, time, instructor_id, capacity FROM override_sessions ORDER BY date, time`)
	if err != nil {
		return nil, fmt.Errorf("failed to get override sessions: %w", err)
	}
	defer sessionRows.Close()

	for sessionRows.Next() {
		var date string
		var session models.OverrideSession
		if err := sessionRows.Scan(&date, &session.Time, &session.InstructorID, &session.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan override session: %w", err)
		}
		override, ok := overrides[date]
		if !ok {
			continue
		}
		override.Sessions = append(override.Sessions, session)
		overrides[date] = override
	}
	if err = sessionRows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

func (db *DB) DeleteSessionOverride(ctx context.Context, date string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM session_overrides WHERE date = ?`, date); err != nil {
		return fmt.Errorf("failed to delete session override: %w", err)
	}
	return nil
}

func (db *DB) CreateCourse(ctx context.Context, course *models.Course) error {
	query := `INSERT INTO courses (name, technique, day_of_week, time, start_date, weeks)
              VALUES (?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		course.Name, course.Technique, course.DayOfWeek, course.Time, course.StartDate, course.Weeks)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	course.ID = id
	return nil
}

func (db *DB) GetCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, technique, day_of_week, time, start_date, weeks FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var course models.Course
		err := rows.Scan(&course.ID, &course.Name, &course.Technique,
			&course.DayOfWeek, &course.Time, &course.StartDate, &course.Weeks)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// HasCourseConflict reports whether a running course reserves the slot for
// the same technique.
func (db *DB) HasCourseConflict(ctx context.Context, date, timeStr, technique string) (bool, error) {
	courses, err := db.GetCourses(ctx)
	if err != nil {
		return false, err
	}
	for _, course := range courses {
		if course.Technique == technique && course.Covers(date, timeStr) {
			return true, nil
		}
	}
	return false, nil
}

// GetSessionOverride returns the override for one date, or nil when the date
// follows the weekly rules.
func (db *DB) GetSessionOverride(ctx context.Context, date string) (*models.SessionOverride, error) {
	var override models.SessionOverride
	err := db.QueryRowContext(ctx,
		`SELECT date, closed FROM session_overrides WHERE date = ?`, date).
		Scan(&override.Date, &override.Closed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session override: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT time, instructor_id, capacity FROM override_sessions WHERE date = ? ORDER BY time`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get override sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var session models.OverrideSession
		if err := rows.Scan(&session.Time, &session.InstructorID, &session.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan override session: %w", err)
		}
		override.Sessions = append(override.Sessions, session)
	}
	return &override, rows.Err()
}
