package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"rostersync/internal/roster/models"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
	"rostersync/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists rosters in PostgreSQL. Queries run on the
// transaction bound to ctx when there is one.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunInTx runs fn inside a database transaction. The version allocation
// relies on the rosters unique key, so a concurrent writer that took the
// same number surfaces as sentinel.ErrConflict from InsertVersion.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx), s); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit roster tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestVersion(ctx context.Context, key models.WeekKey) (*models.RosterVersion, error) {
	q := tx.ExecerFrom(ctx, s.db)
	query := `
		SELECT id, venue_id, to_char(week_start_date, 'YYYY-MM-DD'), version, status,
		       source_file_url, uploaded_by, content_hash,
		       total_shifts, matched_shifts, unmatched_shifts, created_at
		FROM rosters
		WHERE venue_id = $1 AND week_start_date = $2::text::date
		ORDER BY version DESC
		LIMIT 1
	`
	v, err := scanVersion(q.QueryRowContext(ctx, query, key.VenueID, key.WeekStart.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest roster version: %w", err)
	}

	shifts, err := s.shiftsFor(ctx, q, v.ID)
	if err != nil {
		return nil, err
	}
	v.Shifts = shifts
	return v, nil
}

// ListVersions returns every version of a week, oldest first, without shifts.
func (s *PostgresStore) ListVersions(ctx context.Context, key models.WeekKey) ([]models.RosterVersion, error) {
	query := `
		SELECT id, venue_id, to_char(week_start_date, 'YYYY-MM-DD'), version, status,
		       source_file_url, uploaded_by, content_hash,
		       total_shifts, matched_shifts, unmatched_shifts, created_at
		FROM rosters
		WHERE venue_id = $1 AND week_start_date = $2::text::date
		ORDER BY version
	`
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, query, key.VenueID, key.WeekStart.String())
	if err != nil {
		return nil, fmt.Errorf("list roster versions: %w", err)
	}
	defer rows.Close()

	var out []models.RosterVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster version: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster versions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertVersion(ctx context.Context, v *models.RosterVersion) error {
	query := `
		INSERT INTO rosters (id, venue_id, week_start_date, version, status, source_file_url,
		                     uploaded_by, content_hash, total_shifts, matched_shifts, unmatched_shifts, created_at)
		VALUES ($1, $2, $3::text::date, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, query,
		v.ID, v.VenueID, v.WeekStart.String(), v.Version, string(v.Status), v.SourceFileURL,
		v.UploadedBy, v.ContentHash, v.Totals.TotalShifts, v.Totals.MatchedShifts, v.Totals.UnmatchedShifts, v.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert roster version %d: %w", v.Version, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert roster version: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertShifts(ctx context.Context, shifts []models.ResolvedShift) error {
	query := `
		INSERT INTO shifts (id, roster_id, user_id, original_name, role_tag, shift_date, start_time, end_time,
		                    break_minutes, notes, match_confidence, manually_matched)
		VALUES ($1, $2, $3, $4, $5, $6::text::date, $7::text::time, $8::text::time, $9, $10, $11, $12)
	`
	q := tx.ExecerFrom(ctx, s.db)
	for _, sh := range shifts {
		_, err := q.ExecContext(ctx, query,
			sh.ID, sh.RosterVersionID, nullUUID(sh.IdentityID), sh.OriginalName, sh.Role,
			sh.Date.String(), sh.StartTime.String(), sh.EndTime.String(),
			sh.BreakMinutes, sh.Notes, sh.Confidence, sh.ManuallyMatched,
		)
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertChanges(ctx context.Context, changes []models.ShiftChange) error {
	query := `
		INSERT INTO shift_changes (id, venue_id, user_id, roster_id, change_type, old_shift_id, new_shift_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	q := tx.ExecerFrom(ctx, s.db)
	for _, c := range changes {
		_, err := q.ExecContext(ctx, query,
			c.ID, c.VenueID, c.UserID, c.RosterVersionID, string(c.ChangeType),
			nullUUID(c.OldShiftID), nullUUID(c.NewShiftID), c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert shift change: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) shiftsFor(ctx context.Context, q tx.Execer, versionID uuid.UUID) ([]models.ResolvedShift, error) {
	query := `
		SELECT id, roster_id, user_id, original_name, role_tag,
		       to_char(shift_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		       break_minutes, notes, match_confidence, manually_matched
		FROM shifts
		WHERE roster_id = $1
		ORDER BY shift_date, start_time, id
	`
	rows, err := q.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var out []models.ResolvedShift
	for rows.Next() {
		sh, err := ScanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shifts: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*models.RosterVersion, error) {
	var (
		v      models.RosterVersion
		week   string
		status string
	)
	err := row.Scan(&v.ID, &v.VenueID, &week, &v.Version, &status, &v.SourceFileURL, &v.UploadedBy,
		&v.ContentHash, &v.Totals.TotalShifts, &v.Totals.MatchedShifts, &v.Totals.UnmatchedShifts, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.WeekStart = models.Date(week)
	v.Status = models.RosterStatus(status)
	return &v, nil
}

// ScanShift reads the column list used by shift queries in this package.
func ScanShift(row rowScanner) (models.ResolvedShift, error) {
	var (
		sh         models.ResolvedShift
		identityID uuid.NullUUID
		date       string
		start, end string
		confidence float64
	)
	err := row.Scan(&sh.ID, &sh.RosterVersionID, &identityID, &sh.OriginalName, &sh.Role,
		&date, &start, &end, &sh.BreakMinutes, &sh.Notes, &confidence, &sh.ManuallyMatched)
	if err != nil {
		return models.ResolvedShift{}, err
	}
	if identityID.Valid {
		id := identityID.UUID
		sh.IdentityID = &id
	}
	sh.Date = models.Date(date)
	sh.StartTime = models.TimeOfDay(start)
	sh.EndTime = models.TimeOfDay(end)
	sh.Confidence = confidence
	return sh, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
