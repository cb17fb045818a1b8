package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kjstillabower/weatherlog/internal/db"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(gdb *gorm.DB) *UserRepository {
	if gdb == nil {
		panic("database connection cannot be nil for UserRepository")
	}
	return &UserRepository{db: gdb}
}

func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("gorm: create user %q: %w", u.Username, db.Translate(err))
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return User{}, fmt.Errorf("gorm: find user by id %d: %w", id, db.Translate(err))
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return User{}, fmt.Errorf("gorm: find user by email: %w", db.Translate(err))
	}
	return u, nil
}

// ExistsByUsernameOrEmail reports whether another account (id != excludeID) uses username or email.
// Pass excludeID 0 when registering.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&User{}).Where("(username = ? OR email = ?)", username, email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("gorm: check user exists: %w", err)
	}
	return count > 0, nil
}

// Update writes the mutable profile columns of u.
func (r *UserRepository) Update(ctx context.Context, u *User) error {
	res := r.db.WithContext(ctx).Model(u).
		Select("username", "email", "password_hash", "is_admin").
		Updates(u)
	if res.Error != nil {
		return fmt.Errorf("gorm: update user %d: %w", u.ID, db.Translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("gorm: update user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the user and every entry it owns in one transaction.
// The foreign key cascade covers the same rows; the explicit delete keeps
// behavior identical on databases where the constraint is absent.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&WeatherEntry{}).Error; err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		res := tx.Delete(&User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm: delete user %d: %w", id, err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("gorm: list users: %w", err)
	}
	return users, nil
}

// Recent returns the n newest accounts, highest id first.
func (r *UserRepository) Recent(ctx context.Context, n int) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(n).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("gorm: recent users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("gorm: count users: %w", err)
	}
	return n, nil
}

// EnsureAdmin creates seed when no account has its email. Returns true when a row was inserted.
func (r *UserRepository) EnsureAdmin(ctx context.Context, seed User) (bool, error) {
	var existing User
	err := r.db.WithContext(ctx).Where("email = ?", seed.Email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("gorm: find admin: %w", err)
	}
	seed.IsAdmin = true
	if err := r.db.WithContext(ctx).Create(&seed).Error; err != nil {
		return false, fmt.Errorf("gorm: create admin: %w", db.Translate(err))
	}
	return true, nil
}
