package profiles_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketlytics/internal/profiles"
	"pocketlytics/internal/testsupport"
)

func TestEnrichIssuesOneProfileQuery(t *testing.T) {
	dbManager, _, site := testsupport.SetupTestDBManagerWithSite(t, "example.com")
	db := dbManager.GetConnection()

	testsupport.CreateTestProfile(t, db, site.ID, "alice", map[string]any{"plan": "pro"})
	testsupport.CreateTestProfile(t, db, site.ID, "bob", map[string]any{"plan": "free"})

	queries := testsupport.CountQueries(t, db, "user_profiles")

	ids := []string{"alice", "bob", "carol"}
	rows := make([]map[string]any, 100)
	for i := range rows {
		rows[i] = map[string]any{"session_id": fmt.Sprint(i), "identified_user_id": ids[i%3]}
	}

	out, err := profiles.Enrich(context.Background(), profiles.NewGormStore(db), site.ID, rows)
	require.NoError(t, err)

	assert.Equal(t, 1, queries())
	require.Len(t, out, 100)
	assert.Equal(t, map[string]any{"plan": "pro"}, out[0]["traits"])
	assert.Equal(t, map[string]any{"plan": "free"}, out[1]["traits"])
	assert.Nil(t, out[2]["traits"])
	assert.Contains(t, out[2], "traits")
}

func TestEnrichWithoutIdentifiedUsersSkipsStore(t *testing.T) {
	dbManager, _, site := testsupport.SetupTestDBManagerWithSite(t, "example.com")
	db := dbManager.GetConnection()
	queries := testsupport.CountQueries(t, db, "user_profiles")

	rows := []map[string]any{
		{"session_id": "1", "identified_user_id": ""},
		{"session_id": "2"},
	}
	out, err := profiles.Enrich(context.Background(), profiles.NewGormStore(db), site.ID, rows)
	require.NoError(t, err)

	assert.Equal(t, 0, queries())
	for _, row := range out {
		assert.Contains(t, row, "traits")
		assert.Nil(t, row["traits"])
	}
}

func TestTraitsForIsSiteScoped(t *testing.T) {
	dbManager, _, site := testsupport.SetupTestDBManagerWithSite(t, "example.com")
	db := dbManager.GetConnection()
	other := testsupport.CreateTestSite(t, db, "other.com")

	testsupport.CreateTestProfile(t, db, other.ID, "alice", map[string]any{"plan": "enterprise"})

	traits, err := profiles.NewGormStore(db).TraitsFor(context.Background(), site.ID, []string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, traits)
}

func TestSaveReplacesTraits(t *testing.T) {
	dbManager, logger, site := testsupport.SetupTestDBManagerWithSite(t, "example.com")
	db := dbManager.GetConnection()

	require.NoError(t, profiles.Save(logger, db, site.ID, "alice", map[string]any{"plan": "free"}))
	require.NoError(t, profiles.Save(logger, db, site.ID, "alice", map[string]any{"plan": "pro", "seats": 3}))

	traits, err := profiles.NewGormStore(db).TraitsFor(context.Background(), site.ID, []string{"alice"})
	require.NoError(t, err)
	require.Contains(t, traits, "alice")
	assert.Equal(t, "pro", traits["alice"]["plan"])
	assert.EqualValues(t, 3, traits["alice"]["seats"])
}

type failingStore struct{}

func (failingStore) TraitsFor(context.Context, uint, []string) (map[string]map[string]any, error) {
	return nil, errors.New("database is locked")
}

func TestEnrichPropagatesStoreErrors(t *testing.T) {
	rows := []map[string]any{{"identified_user_id": "alice"}}
	_, err := profiles.Enrich(context.Background(), failingStore{}, 1, rows)
	assert.EqualError(t, err, "database is locked")
}
