package service

import (
	"context"

	"github.com/kjstillabower/weatherlog/internal/repository"
)

// UserStore is the persistence the account and admin services need.
type UserStore interface {
	Create(ctx context.Context, u *repository.User) error
	FindByID(ctx context.Context, id uint) (repository.User, error)
	FindByEmail(ctx context.Context, email string) (repository.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uint) (bool, error)
	Update(ctx context.Context, u *repository.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]repository.User, error)
	Recent(ctx context.Context, n int) ([]repository.User, error)
	Count(ctx context.Context) (int64, error)
	EnsureAdmin(ctx context.Context, seed repository.User) (bool, error)
}

// EntryStore is the persistence for weather history.
type EntryStore interface {
	Create(ctx context.Context, e *repository.WeatherEntry) error
	CreateInBatches(ctx context.Context, entries []repository.WeatherEntry, batchSize int) (int, error)
	FindByID(ctx context.Context, id uint) (repository.WeatherEntry, error)
	ListByUser(ctx context.Context, userID uint) ([]repository.WeatherEntry, error)
	ListAll(ctx context.Context) ([]repository.WeatherEntry, error)
	Recent(ctx context.Context, n int) ([]repository.WeatherEntry, error)
	Count(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context) (map[uint]int64, error)
	Update(ctx context.Context, e *repository.WeatherEntry) error
	Delete(ctx context.Context, id uint) error
}

var (
	_ UserStore  = (*repository.UserRepository)(nil)
	_ EntryStore = (*repository.WeatherRepository)(nil)
)
