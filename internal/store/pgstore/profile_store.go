package pgstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dolphinlong/timetable-core/internal/scheduler/priority"
)

// ProfileStore persists priority.Registry profiles in a
// `priority_profiles(profile_name, constraint_id, level_name)` table,
// grounded on the teacher's configuration_repository.go key-value
// upsert pattern.
type ProfileStore struct {
	db *sqlx.DB
}

// NewProfileStore returns a pgstore-backed priority.ProfileStore.
func NewProfileStore(db *sqlx.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

type profileRow struct {
	ProfileName  string `db:"profile_name"`
	ConstraintID string `db:"constraint_id"`
	LevelName    string `db:"level_name"`
}

func (s *ProfileStore) Save(profileName string, levels map[string]priority.Level) error {
	ctx := context.Background()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save profile: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM priority_profiles WHERE profile_name = $1`, profileName); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear profile %s: %w", profileName, err)
	}
	const upsert = `INSERT INTO priority_profiles (profile_name, constraint_id, level_name)
VALUES (:profile_name, :constraint_id, :level_name)
ON CONFLICT (profile_name, constraint_id) DO UPDATE SET level_name = EXCLUDED.level_name`
	for constraintID, level := range levels {
		row := profileRow{ProfileName: profileName, ConstraintID: constraintID, LevelName: string(level)}
		if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save profile %s entry %s: %w", profileName, constraintID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save profile %s: %w", profileName, err)
	}
	return nil
}

func (s *ProfileStore) Load(profileName string) (map[string]priority.Level, bool, error) {
	ctx := context.Background()
	const query = `SELECT profile_name, constraint_id, level_name FROM priority_profiles WHERE profile_name = $1`
	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, query, profileName); err != nil {
		return nil, false, fmt.Errorf("load profile %s: %w", profileName, err)
	}
	if len(rows) > 0 {
		levels := make(map[string]priority.Level, len(rows))
		for _, r := range rows {
			levels[r.ConstraintID] = priority.Level(r.LevelName)
		}
		return levels, true, nil
	}
	if builtin, ok := priority.Profile(profileName); ok {
		return builtin, true, nil
	}
	return nil, false, nil
}

func (s *ProfileStore) List() ([]string, error) {
	ctx := context.Background()
	const query = `SELECT DISTINCT profile_name FROM priority_profiles ORDER BY profile_name ASC`
	var names []string
	if err := s.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, builtin := range []string{priority.ProfileStrict, priority.ProfileBalanced, priority.ProfileFlexible, priority.ProfileSpeed} {
		if !seen[builtin] {
			names = append(names, builtin)
		}
	}
	return names, nil
}
