package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
)

const goalColumns = `goal_id, goal_name, target_amount, current_progress, last_updated`

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY goal_name`)
	if err != nil {
		return nil, classify("list goals", err)
	}
	defer rows.Close()

	goals := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list goals", err)
	}
	return goals, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, name string) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE goal_name = ?`, name)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("%w: %q", core.ErrGoalNotFound, name)
	}
	return g, err
}

// UpsertGoal creates a goal or changes the target of an existing one. Progress is kept.
func (r *SQLiteRepository) UpsertGoal(ctx context.Context, name string, target float64) (core.Goal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Goal{}, fmt.Errorf("%w: name is required", core.ErrInvalidGoal)
	}
	if target < 0 {
		return core.Goal{}, fmt.Errorf("%w: target must be >= 0, got %v", core.ErrInvalidGoal, target)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO goals (goal_name, target_amount) VALUES (?, ?)
ON CONFLICT(goal_name) DO UPDATE SET target_amount = excluded.target_amount`, name, target)
	if err != nil {
		return core.Goal{}, classify("upsert goal", err)
	}

	slog.InfoContext(ctx, "Goal saved", "goal", name, "target", target)
	return r.GetGoal(ctx, name)
}

// SetGoalProgress records the current progress of a goal. Progress above the target is allowed.
func (r *SQLiteRepository) SetGoalProgress(ctx context.Context, name string, progress float64) (core.Goal, error) {
	if progress < 0 {
		return core.Goal{}, fmt.Errorf("%w: progress must be >= 0, got %v", core.ErrInvalidGoal, progress)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET current_progress = ?, last_updated = ? WHERE goal_name = ?`,
		progress, r.now().Format(core.TimestampLayout), name)
	if err != nil {
		return core.Goal{}, classify("update goal progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Goal{}, classify("update goal progress", err)
	}
	if n == 0 {
		return core.Goal{}, fmt.Errorf("%w: %q", core.ErrGoalNotFound, name)
	}

	slog.InfoContext(ctx, "Goal progress updated", "goal", name, "progress", progress)
	return r.GetGoal(ctx, name)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g       core.Goal
		updated sql.NullString
	)
	if err := s.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentProgress, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, classify("scan goal", err)
	}
	if updated.Valid && updated.String != "" {
		t, err := time.ParseInLocation(core.TimestampLayout, updated.String, time.Local)
		if err != nil {
			slog.Warn("Unparsable goal timestamp", "goal", g.Name, "last_updated", updated.String)
		} else {
			g.LastUpdated = t
		}
	}
	return g, nil
}
