package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	ChangeStatusPending     = "pending_approval"
	ChangeStatusApplied     = "applied"
	ChangeStatusApplyFailed = "apply_failed"
	ChangeStatusRejected    = "rejected"
)

var (
	ErrChangeNotFound       = errors.New("change not found")
	ErrInvalidStatusTransit = errors.New("invalid change status transition")
)

// Change is one generated code artifact and where it is in the approval
// workflow.
type Change struct {
	ID        int64
	RunID     string
	Command   string
	Language  string
	FilePath  sql.NullString
	Code      string
	SHA256    string
	Status    string
	LastError sql.NullString
	CreatedAt int64
	UpdatedAt int64
}

var changeStatusTransitions = map[string]map[string]struct{}{
	ChangeStatusPending: {
		ChangeStatusApplied:     struct{}{},
		ChangeStatusApplyFailed: struct{}{},
		ChangeStatusRejected:    struct{}{},
	},
	ChangeStatusApplyFailed: {
		ChangeStatusApplied:  struct{}{},
		ChangeStatusRejected: struct{}{},
	},
}

func IsValidChangeStatusTransition(from, to string) bool {
	next, ok := changeStatusTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func InsertChange(database *sql.DB, runID, command, language, filePath, code, status string) error {
	runID = strings.TrimSpace(runID)
	status = strings.TrimSpace(status)
	if runID == "" {
		return fmt.Errorf("run_id cannot be empty")
	}
	if status == "" {
		return fmt.Errorf("status cannot be empty")
	}
	_, err := database.Exec(
		`INSERT INTO changes (run_id, command, language, file_path, code, sha256, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, command, language, nullIfEmpty(filePath), code, CodeSHA256(code), status,
	)
	return err
}

const changeColumns = `id, run_id, command, language, file_path, code, sha256, status, last_error, created_at, updated_at`

func scanChange(row interface{ Scan(...any) error }) (*Change, error) {
	var c Change
	if err := row.Scan(
		&c.ID, &c.RunID, &c.Command, &c.Language, &c.FilePath, &c.Code, &c.SHA256,
		&c.Status, &c.LastError, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func GetChangeByRunID(database *sql.DB, runID string) (*Change, error) {
	c, err := scanChange(database.QueryRow(`SELECT `+changeColumns+` FROM changes WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChangeNotFound
	}
	return c, err
}

// ListChanges returns changes in status (all statuses when empty), newest first.
func ListChanges(database *sql.DB, status string, limit int) ([]*Change, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + changeColumns + ` FROM changes`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TransitionChangeStatus moves runID from fromStatus to toStatus. It reports
// false when the row is not currently in fromStatus.
func TransitionChangeStatus(database *sql.DB, runID, fromStatus, toStatus, lastError string) (bool, error) {
	if !IsValidChangeStatusTransition(fromStatus, toStatus) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransit, fromStatus, toStatus)
	}

	res, err := database.Exec(
		`UPDATE changes
		    SET status = ?, last_error = ?, updated_at = unixepoch()
		  WHERE run_id = ? AND status = ?`,
		toStatus, nullIfEmpty(truncateForDB(lastError)), runID, fromStatus,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func CodeSHA256(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (s *Store) RecordChange(runID, command, language, filePath, code, status string) error {
	return InsertChange(s.DB, runID, command, language, filePath, code, status)
}

func (s *Store) Change(runID string) (*Change, error) {
	return GetChangeByRunID(s.DB, runID)
}

func (s *Store) TransitionChange(runID, fromStatus, toStatus, lastError string) (bool, error) {
	return TransitionChangeStatus(s.DB, runID, fromStatus, toStatus, lastError)
}

func truncateForDB(s string) string {
	const max = 2000
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
