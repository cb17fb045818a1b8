package testutil

import (
	"context"
	"regexp"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kjstillabower/weatherlog/internal/config"
	"github.com/kjstillabower/weatherlog/internal/db"
	"github.com/kjstillabower/weatherlog/internal/repository"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// OpenTestDB opens a migrated in-memory SQLite database private to t.
// The database lives until t's cleanup closes the pool.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := unsafeName.ReplaceAllString(t.Name(), "_")
	gdb, err := db.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + name + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	if err := repository.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// CreateUser inserts a user with a placeholder hash and returns it.
func CreateUser(t *testing.T, gdb *gorm.DB, username, email string, admin bool) repository.User {
	t.Helper()
	u := repository.User{Username: username, Email: email, PasswordHash: "x", IsAdmin: admin}
	if err := repository.NewUserRepository(gdb).Create(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
