package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rostersync/internal/notification/models"
	rostermodels "rostersync/internal/roster/models"
	rosterstore "rostersync/internal/roster/store"
	"rostersync/pkg/platform/sentinel"
)

// PostgresStore serves the sweep from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) PendingChanges(ctx context.Context, since time.Time) ([]rostermodels.ShiftChange, error) {
	query := `
		SELECT id, venue_id, user_id, roster_id, change_type, old_shift_id, new_shift_id, created_at, notified_at
		FROM shift_changes
		WHERE notified_at IS NULL AND created_at >= $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	var out []rostermodels.ShiftChange
	for rows.Next() {
		var (
			c          rostermodels.ShiftChange
			changeType string
			oldID      uuid.NullUUID
			newID      uuid.NullUUID
			notifiedAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.VenueID, &c.UserID, &c.RosterVersionID, &changeType,
			&oldID, &newID, &c.CreatedAt, &notifiedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.ChangeType = rostermodels.ChangeType(changeType)
		c.OldShiftID = uuidPtr(oldID)
		c.NewShiftID = uuidPtr(newID)
		if notifiedAt.Valid {
			c.NotifiedAt = &notifiedAt.Time
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

// ClaimChange marks a change notified only while it is still unclaimed.
func (s *PostgresStore) ClaimChange(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE shift_changes
		SET notified_at = $2
		WHERE id = $1 AND notified_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("claim change: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim change rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}
	return false, s.ensureChangeExists(ctx, id)
}

// ReleaseChange undoes a claim, but only the one taken at claimedAt.
func (s *PostgresStore) ReleaseChange(ctx context.Context, id uuid.UUID, claimedAt time.Time) (bool, error) {
	query := `
		UPDATE shift_changes
		SET notified_at = NULL
		WHERE id = $1 AND notified_at = $2
	`
	result, err := s.db.ExecContext(ctx, query, id, claimedAt)
	if err != nil {
		return false, fmt.Errorf("release change: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release change rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}
	return false, s.ensureChangeExists(ctx, id)
}

func (s *PostgresStore) ensureChangeExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shift_changes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check change exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ShiftsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]rostermodels.ResolvedShift, error) {
	out := make(map[uuid.UUID]rostermodels.ResolvedShift, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make(pq.StringArray, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	query := `
		SELECT id, roster_id, user_id, original_name, role_tag,
		       to_char(shift_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		       break_minutes, notes, match_confidence, manually_matched
		FROM shifts
		WHERE id = ANY($1::uuid[])
	`
	rows, err := s.db.QueryContext(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("list shifts by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sh, err := rosterstore.ScanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out[sh.ID] = sh
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shifts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Recipient(ctx context.Context, userID uuid.UUID) (*models.Recipient, error) {
	query := `
		SELECT u.id, u.display_name, COALESCE(u.email, ''),
		       COALESCE(p.push_enabled, TRUE), COALESCE(p.email_enabled, FALSE)
		FROM users u
		LEFT JOIN user_prefs p ON p.user_id = u.id
		WHERE u.id = $1
	`
	var r models.Recipient
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&r.UserID, &r.DisplayName, &r.Email, &r.Prefs.PushEnabled, &r.Prefs.EmailEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipient: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT token, platform FROM device_tokens WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		r.DeviceTokens = append(r.DeviceTokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device tokens: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) AppendLog(ctx context.Context, entry models.LogEntry) error {
	query := `
		INSERT INTO notification_log (id, user_id, notification_type, title, body, sent_via, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.Type, entry.Title, entry.Body,
		pq.StringArray(entry.SentVia), entry.Status, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
