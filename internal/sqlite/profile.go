package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/repository"
)

// ProfileRepository implements profile persistence for SQLite. It satisfies
// the narrow stores declared by the profile, ledger, and cycle packages.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, familyID string, p *profile.Profile) error {
	tasks, consequences, plan, err := marshalDocs(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (
			id, family_id, name, balance, weekly_goal_hours,
			weekly_goal_progress, tasks, consequences, weekly_plan, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		familyID,
		p.Name,
		p.Balance,
		p.WeeklyGoalHours,
		p.WeeklyGoalProgress,
		tasks,
		consequences,
		plan,
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %s already exists: %w", p.ID, repository.ErrInvalidInput)
		}
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// Get retrieves a profile by id
func (r *ProfileRepository) Get(ctx context.Context, familyID, id string) (*profile.Profile, error) {
	query := `
		SELECT id, name, balance, weekly_goal_hours, weekly_goal_progress,
		       tasks, consequences, weekly_plan, created_at
		FROM profiles
		WHERE id = ? AND family_id = ?
	`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id, familyID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		if isBusy(err) {
			return nil, repository.ErrUnavailable
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// List returns every profile of a family ordered by creation time
func (r *ProfileRepository) List(ctx context.Context, familyID string) ([]profile.Profile, error) {
	query := `
		SELECT id, name, balance, weekly_goal_hours, weekly_goal_progress,
		       tasks, consequences, weekly_plan, created_at
		FROM profiles
		WHERE family_id = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		if isBusy(err) {
			return nil, repository.ErrUnavailable
		}
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return profiles, nil
}

// Update writes every profile field except the cached balance, which only
// moves through SetBalance and AdjustBalance.
func (r *ProfileRepository) Update(ctx context.Context, familyID string, p *profile.Profile) error {
	tasks, consequences, plan, err := marshalDocs(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE profiles
		SET name = ?, weekly_goal_hours = ?, weekly_goal_progress = ?,
		    tasks = ?, consequences = ?, weekly_plan = ?
		WHERE id = ? AND family_id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		p.Name,
		p.WeeklyGoalHours,
		p.WeeklyGoalProgress,
		tasks,
		consequences,
		plan,
		p.ID,
		familyID,
	)
	if err != nil {
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireRow(result)
}

// UpdateTasks replaces the tasks document wholesale
func (r *ProfileRepository) UpdateTasks(ctx context.Context, familyID, id string, tasks []profile.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET tasks = ? WHERE id = ? AND family_id = ?`,
		string(data), id, familyID)
	if err != nil {
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to update tasks: %w", err)
	}
	return requireRow(result)
}

// SetBalance overwrites the cached balance, used by the cycle reset
func (r *ProfileRepository) SetBalance(ctx context.Context, familyID, id string, balance int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET balance = ? WHERE id = ? AND family_id = ?`,
		balance, id, familyID)
	if err != nil {
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return requireRow(result)
}

// AdjustBalance atomically increments the cached balance and returns the new
// value. Increments commute, so concurrent appends from multiple devices
// never lose updates.
func (r *ProfileRepository) AdjustBalance(ctx context.Context, familyID, id string, delta int) (int, error) {
	var balance int
	err := r.db.QueryRowContext(ctx,
		`UPDATE profiles SET balance = balance + ?
		 WHERE id = ? AND family_id = ?
		 RETURNING balance`,
		delta, id, familyID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		if isBusy(err) {
			return 0, repository.ErrUnavailable
		}
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, nil
}

// Delete removes a profile
func (r *ProfileRepository) Delete(ctx context.Context, familyID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE id = ? AND family_id = ?`, id, familyID)
	if err != nil {
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return requireRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*profile.Profile, error) {
	var p profile.Profile
	var tasks, consequences, plan string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Balance,
		&p.WeeklyGoalHours,
		&p.WeeklyGoalProgress,
		&tasks,
		&consequences,
		&plan,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tasks), &p.Tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	if err := json.Unmarshal([]byte(consequences), &p.Consequences); err != nil {
		return nil, fmt.Errorf("failed to decode consequences: %w", err)
	}
	if err := json.Unmarshal([]byte(plan), &p.WeeklyPlan); err != nil {
		return nil, fmt.Errorf("failed to decode weekly plan: %w", err)
	}
	return &p, nil
}

func marshalDocs(p *profile.Profile) (tasks, consequences, plan string, err error) {
	tasksData, err := json.Marshal(orEmptyTasks(p.Tasks))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal tasks: %w", err)
	}
	consequencesData, err := json.Marshal(orEmptyConsequences(p.Consequences))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal consequences: %w", err)
	}
	planData, err := json.Marshal(p.WeeklyPlan.Normalize())
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal weekly plan: %w", err)
	}
	return string(tasksData), string(consequencesData), string(planData), nil
}

func orEmptyTasks(tasks []profile.Task) []profile.Task {
	if tasks == nil {
		return []profile.Task{}
	}
	return tasks
}

func orEmptyConsequences(consequences []profile.Consequence) []profile.Consequence {
	if consequences == nil {
		return []profile.Consequence{}
	}
	return consequences
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
