//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rostersync/internal/identity/store"
	"rostersync/pkg/platform/sentinel"
	"rostersync/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "user_venue_roles", "users", "venues")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) addUser(venueID uuid.UUID, name string, aliases string) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()
	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO users (id, display_name, aliases) VALUES ($1, $2, $3::text[])`, id, name, aliases)
	s.Require().NoError(err)
	_, err = s.postgres.DB.ExecContext(ctx,
		`INSERT INTO user_venue_roles (user_id, venue_id) VALUES ($1, $2)`, id, venueID)
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) addVenue() uuid.UUID {
	id := uuid.New()
	_, err := s.postgres.DB.ExecContext(context.Background(),
		`INSERT INTO venues (id, name) VALUES ($1, 'The Local')`, id)
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) TestListByVenue() {
	ctx := context.Background()
	venue := s.addVenue()
	other := s.addVenue()
	alice := s.addUser(venue, "Alice Smith", `{"Ali"," Ali ","Allie"}`)
	s.addUser(other, "Bob Jones", `{}`)

	identities, err := s.store.ListByVenue(ctx, venue)
	s.Require().NoError(err)
	s.Require().Len(identities, 1)
	s.Equal(alice, identities[0].ID)
	s.Equal("Alice Smith", identities[0].DisplayName)
	s.Equal([]string{"Ali", "Allie"}, identities[0].Aliases)
	s.False(identities[0].HasEmbedding())
}

func (s *PostgresStoreSuite) TestUpsertEmbedding() {
	ctx := context.Background()
	venue := s.addVenue()
	alice := s.addUser(venue, "Alice Smith", `{}`)

	s.Require().NoError(s.store.UpsertEmbedding(ctx, alice, []float32{0.25, -0.5, 1}))

	identities, err := s.store.ListByVenue(ctx, venue)
	s.Require().NoError(err)
	s.Require().Len(identities, 1)
	s.Equal([]float32{0.25, -0.5, 1}, identities[0].Embedding)

	err = s.store.UpsertEmbedding(ctx, uuid.New(), []float32{1})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
