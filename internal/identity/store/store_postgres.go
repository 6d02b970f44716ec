package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rostersync/internal/roster/models"
	"rostersync/pkg/platform/sentinel"
	pstrings "rostersync/pkg/platform/strings"
)

// PostgresStore reads identities from users joined to venue memberships.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Identity, error) {
	query := `
		SELECT u.id, u.display_name, u.aliases, u.name_embedding
		FROM users u
		JOIN user_venue_roles uvr ON uvr.user_id = u.id
		WHERE uvr.venue_id = $1
		ORDER BY u.id
	`
	rows, err := s.db.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("list identities by venue: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

// UpsertEmbedding stores a recomputed name embedding for a user.
func (s *PostgresStore) UpsertEmbedding(ctx context.Context, userID uuid.UUID, embedding []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name_embedding = $2 WHERE id = $1`,
		userID, pq.Array(embedding))
	if err != nil {
		return fmt.Errorf("update name embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update name embedding for %s: %w", userID, sentinel.ErrNotFound)
	}
	return nil
}

func scanIdentity(rows *sql.Rows) (models.Identity, error) {
	var (
		ident     models.Identity
		aliases   pq.StringArray
		embedding pq.Float32Array
	)
	if err := rows.Scan(&ident.ID, &ident.DisplayName, &aliases, &embedding); err != nil {
		return models.Identity{}, err
	}
	ident.Aliases = pstrings.DedupeAndTrim(aliases)
	if len(embedding) > 0 {
		ident.Embedding = embedding
	}
	return ident, nil
}
