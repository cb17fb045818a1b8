package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weatherlog/internal/repository"
	"github.com/kjstillabower/weatherlog/internal/testutil"
)

func uintPtr(v uint) *uint { return &v }

func TestUserRepository_UniqueUsernameAndEmail(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(gdb)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &repository.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	err := users.Create(ctx, &repository.User{Username: "alice", Email: "other@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = users.Create(ctx, &repository.User{Username: "bob", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_FindAndExists(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(gdb)
	ctx := context.Background()

	alice := testutil.CreateUser(t, gdb, "alice", "alice@example.com", false)
	testutil.CreateUser(t, gdb, "bob", "bob@example.com", false)

	got, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set on insert")

	_, err = users.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = users.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	exists, err := users.ExistsByUsernameOrEmail(ctx, "bob", "new@example.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = users.ExistsByUsernameOrEmail(ctx, "alice", "alice@example.com", alice.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a user does not collide with itself")
}

func TestUserRepository_UpdateAndListing(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(gdb)
	ctx := context.Background()

	a := testutil.CreateUser(t, gdb, "a", "a@example.com", false)
	testutil.CreateUser(t, gdb, "b", "b@example.com", false)
	testutil.CreateUser(t, gdb, "c", "c@example.com", true)

	a.Username = "a2"
	a.PasswordHash = "new-hash"
	require.NoError(t, users.Update(ctx, &a))
	got, err := users.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", got.Username)
	assert.Equal(t, "new-hash", got.PasswordHash)

	missing := repository.User{ID: 4242, Username: "x", Email: "x@example.com"}
	assert.ErrorIs(t, users.Update(ctx, &missing), repository.ErrNotFound)

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a2", all[0].Username)

	recent, err := users.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Username)
	assert.Equal(t, "b", recent[1].Username)
}

func TestUserRepository_DeleteCascadesEntries(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(gdb)
	entries := repository.NewWeatherRepository(gdb)
	ctx := context.Background()

	alice := testutil.CreateUser(t, gdb, "alice", "alice@example.com", false)
	bob := testutil.CreateUser(t, gdb, "bob", "bob@example.com", false)

	for _, owner := range []uint{alice.ID, alice.ID, bob.ID} {
		require.NoError(t, entries.Create(ctx, &repository.WeatherEntry{UserID: uintPtr(owner), City: "Paris", Temperature: 20}))
	}
	require.NoError(t, entries.Create(ctx, &repository.WeatherEntry{City: "Imported", Temperature: 1}))

	require.NoError(t, users.Delete(ctx, alice.ID))

	n, err := entries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "only bob's entry and the ownerless row remain")

	left, err := entries.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, users.Delete(ctx, alice.ID), repository.ErrNotFound)
}

func TestWeatherEntry_ForeignKeyCascade(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	entries := repository.NewWeatherRepository(gdb)
	ctx := context.Background()

	alice := testutil.CreateUser(t, gdb, "alice", "alice@example.com", false)
	require.NoError(t, entries.Create(ctx, &repository.WeatherEntry{UserID: uintPtr(alice.ID), City: "Oslo"}))

	// Bypass the repository so only the database constraint acts.
	require.NoError(t, gdb.Exec("DELETE FROM users WHERE id = ?", alice.ID).Error)

	n, err := entries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestWeatherEntry_RejectsUnknownOwner(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	entries := repository.NewWeatherRepository(gdb)

	err := entries.Create(context.Background(), &repository.WeatherEntry{UserID: uintPtr(777), City: "Nowhere"})
	assert.Error(t, err)
}

func TestWeatherRepository_CRUD(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	entries := repository.NewWeatherRepository(gdb)
	ctx := context.Background()

	alice := testutil.CreateUser(t, gdb, "alice", "alice@example.com", false)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := repository.WeatherEntry{UserID: uintPtr(alice.ID), City: "Rome", Temperature: 15, Timestamp: base}
	newer := repository.WeatherEntry{UserID: uintPtr(alice.ID), City: "Milan", Temperature: 12, Timestamp: base.Add(time.Hour)}
	require.NoError(t, entries.Create(ctx, &older))
	require.NoError(t, entries.Create(ctx, &newer))

	defaulted := repository.WeatherEntry{UserID: uintPtr(alice.ID), City: "Turin"}
	require.NoError(t, entries.Create(ctx, &defaulted))
	assert.False(t, defaulted.Timestamp.IsZero(), "Timestamp defaults to now")

	list, err := entries.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Turin", list[0].City)
	assert.Equal(t, "Milan", list[1].City)
	assert.Equal(t, "Rome", list[2].City)

	got, err := entries.FindByID(ctx, older.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Username)
	assert.True(t, got.Owned(alice.ID))
	assert.False(t, got.Owned(alice.ID+1))

	got.City = "Roma"
	got.Temperature = 16.5
	got.Description = "sunny"
	require.NoError(t, entries.Update(ctx, &got))
	got, err = entries.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roma", got.City)
	assert.Equal(t, 16.5, got.Temperature)
	assert.True(t, got.Timestamp.Equal(base))

	require.NoError(t, entries.Delete(ctx, older.ID))
	_, err = entries.FindByID(ctx, older.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, entries.Delete(ctx, older.ID), repository.ErrNotFound)
}

func TestWeatherRepository_ListAllRecentAndCounts(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	entries := repository.NewWeatherRepository(gdb)
	ctx := context.Background()

	alice := testutil.CreateUser(t, gdb, "alice", "alice@example.com", false)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	batch := []repository.WeatherEntry{
		{City: "A", Timestamp: base},
		{City: "B", Timestamp: base.Add(2 * time.Hour)},
		{UserID: uintPtr(alice.ID), City: "C", Timestamp: base.Add(time.Hour)},
	}
	inserted, err := entries.CreateInBatches(ctx, batch, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	empty, err := entries.CreateInBatches(ctx, nil, 2)
	require.NoError(t, err)
	assert.Zero(t, empty)

	all, err := entries.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{all[0].City, all[1].City, all[2].City})
	assert.Nil(t, all[0].User)
	require.NotNil(t, all[1].User)
	assert.Equal(t, "alice", all[1].User.Username)

	recent, err := entries.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	counts, err := entries.CountByUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{alice.ID: 1}, counts)
}

func TestUserRepository_EnsureAdmin(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(gdb)
	ctx := context.Background()

	seed := repository.User{Username: "admin", Email: "admin@gmail.com", PasswordHash: "h"}
	created, err := users.EnsureAdmin(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = users.EnsureAdmin(ctx, seed)
	require.NoError(t, err)
	assert.False(t, created, "second call is a no-op")

	admin, err := users.FindByEmail(ctx, "admin@gmail.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
}
